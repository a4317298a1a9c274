package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/session"
)

// CompletionAgent sends one flattened prompt with no tools. It never touches
// the task list.
type CompletionAgent struct {
	base
}

func (a *CompletionAgent) Mode() Mode { return ModeCompletion }

func (a *CompletionAgent) Respond(ctx context.Context, st *session.State, input string) (Reply, error) {
	pc := a.buildContext(st)
	resp, err := a.generate(ctx, brain.Request{
		Messages:    []brain.Message{{Role: brain.RoleUser, Content: pc.Render(input)}},
		Temperature: a.temperatureParam(),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("model call: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		a.logger.Warn("empty completion; using fallback reply", "stop_reason", resp.StopReason)
		text = FallbackReply
	}
	return Reply{Text: text}, nil
}

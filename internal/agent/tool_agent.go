package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/tools"
)

// ToolAgent offers the task tools to the model. At most one tool runs per
// turn; the model then phrases the final reply from the tool output.
type ToolAgent struct {
	base
}

func (a *ToolAgent) Mode() Mode { return ModeTools }

func (a *ToolAgent) Respond(ctx context.Context, st *session.State, input string) (Reply, error) {
	pc := a.buildContext(st)
	messages := transcript(pc.Turns)
	messages = append(messages, brain.Message{Role: brain.RoleUser, Content: input})
	decls := toolDecls()

	first, err := a.generate(ctx, brain.Request{
		System:      pc.SystemPrompt(),
		Messages:    messages,
		Tools:       decls,
		ToolChoice:  brain.ToolChoiceAuto,
		Temperature: a.temperatureParam(),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("model call: %w", err)
	}
	if len(first.ToolCalls) == 0 {
		text := strings.TrimSpace(first.Text)
		if text == "" {
			a.logger.Warn("model returned neither text nor a tool call", "stop_reason", first.StopReason)
			text = FallbackReply
		}
		return Reply{Text: text}, nil
	}

	call := first.ToolCalls[0]
	if len(first.ToolCalls) > 1 {
		dropped := make([]string, 0, len(first.ToolCalls)-1)
		for _, tc := range first.ToolCalls[1:] {
			dropped = append(dropped, tc.Name)
		}
		a.logger.Warn("model proposed several tool calls; only the first runs",
			"tool", call.Name, "dropped", dropped)
	}
	if call.ID == "" {
		call.ID = "call_" + call.Name
	}

	output := a.runTool(st, call)
	reply := Reply{Tool: call.Name, ToolOutput: output}

	messages = append(messages,
		brain.Message{Role: brain.RoleAssistant, Content: first.Text, ToolCalls: []brain.ToolCall{call}},
		brain.Message{Role: brain.RoleTool, ToolCallID: call.ID, ToolName: call.Name, Content: output},
	)
	final, err := a.generate(ctx, brain.Request{
		System:      pc.SystemPrompt(),
		Messages:    messages,
		Tools:       decls,
		ToolChoice:  brain.ToolChoiceNone,
		Temperature: a.temperatureParam(),
	})
	if err != nil {
		// The tool has already run; its effect on the list stays.
		return reply, fmt.Errorf("model call after %s: %w", call.Name, err)
	}

	reply.Text = strings.TrimSpace(final.Text)
	if reply.Text == "" {
		reply.Text = output
	}
	return reply, nil
}

func (a *ToolAgent) runTool(st *session.State, tc brain.ToolCall) string {
	start := time.Now()
	defer func() { a.observeStage(StageToolExec, time.Since(start)) }()

	call, err := tools.Parse(tc.Name, tc.Arguments)
	if err != nil {
		var argErr *tools.ArgumentError
		if errors.As(err, &argErr) {
			a.logger.Warn("rejected tool call", "tool", tc.Name, "reason", argErr.Reason)
		}
		a.observeTool(tc.Name, ToolOutcomeInvalid)
		return tools.ErrorResult(err)
	}

	out := tools.Execute(st.Tasks, call)
	a.observeTool(call.ToolName(), ToolOutcomeOK)
	a.logger.Debug("tool executed", "tool", call.ToolName(), "tasks", st.Tasks.Len())
	return out
}

func toolDecls() []brain.ToolDecl {
	specs := tools.Specs()
	decls := make([]brain.ToolDecl, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, brain.ToolDecl{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.JSONSchema(),
		})
	}
	return decls
}

func transcript(turns []memory.Turn) []brain.Message {
	out := make([]brain.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := brain.RoleUser
		if t.Role == memory.RoleAssistant {
			role = brain.RoleAssistant
		}
		out = append(out, brain.Message{Role: role, Content: t.Content})
	}
	return out
}

// Package agent turns one user utterance into an assistant reply, either by
// letting the model call task tools (ModeTools) or by plain completion
// (ModeCompletion).
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/logging"
	"github.com/ent0n29/sparky/internal/prompt"
	"github.com/ent0n29/sparky/internal/session"
)

type Mode string

const (
	ModeTools      Mode = "tools"
	ModeCompletion Mode = "completion"
)

// FallbackReply replaces an empty model answer that carries no tool call.
const FallbackReply = "Sorry, I could not generate a response."

const (
	StageContextBuild = "context_build"
	StageModelCall    = "model_call"
	StageToolExec     = "tool_exec"
)

const (
	ToolOutcomeOK      = "ok"
	ToolOutcomeInvalid = "invalid_arguments"
)

type Reply struct {
	Text       string `json:"reply"`
	Tool       string `json:"tool,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`
}

// Dispatcher answers one user input against a session's state. The caller
// holds the session's turn lock and appends both turns to the history
// afterwards; st.History must not yet contain input.
type Dispatcher interface {
	Mode() Mode
	Respond(ctx context.Context, st *session.State, input string) (Reply, error)
}

// Observer receives per-stage timings and tool outcomes.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveToolCall(tool, outcome string)
}

type Options struct {
	Persona prompt.Persona
	// Window is the number of history turns forwarded; <= 0 forwards all.
	Window int
	// Temperature overrides the persona default when set.
	Temperature *float64
	Logger      *slog.Logger
	Observer    Observer
}

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeTools:
		return ModeTools, nil
	case ModeCompletion:
		return ModeCompletion, nil
	default:
		return "", fmt.Errorf("unsupported agent mode %q (want %q or %q)", raw, ModeTools, ModeCompletion)
	}
}

func NewDispatcher(mode Mode, client brain.Client, opts Options) (Dispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("agent: brain client is required")
	}
	b := newBase(client, opts)
	switch mode {
	case ModeTools:
		return &ToolAgent{base: b}, nil
	case ModeCompletion:
		return &CompletionAgent{base: b}, nil
	default:
		return nil, fmt.Errorf("unsupported agent mode %q", mode)
	}
}

type base struct {
	client      brain.Client
	builder     prompt.Builder
	temperature float64
	logger      *slog.Logger
	observer    Observer
}

func newBase(client brain.Client, opts Options) base {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	temp := opts.Persona.Temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	return base{
		client:      client,
		builder:     prompt.Builder{System: opts.Persona.System, Window: opts.Window},
		temperature: temp,
		logger:      logger.With("component", "agent", "provider", client.Name()),
		observer:    opts.Observer,
	}
}

func (b base) buildContext(st *session.State) prompt.Context {
	start := time.Now()
	c := b.builder.Build(st.Tasks.Snapshot(), st.History)
	b.observeStage(StageContextBuild, time.Since(start))
	return c
}

func (b base) generate(ctx context.Context, req brain.Request) (brain.Response, error) {
	start := time.Now()
	resp, err := b.client.Generate(ctx, req)
	b.observeStage(StageModelCall, time.Since(start))
	return resp, err
}

func (b base) temperatureParam() *float64 {
	t := b.temperature
	return &t
}

func (b base) observeStage(stage string, d time.Duration) {
	if b.observer != nil {
		b.observer.ObserveStage(stage, d)
	}
}

func (b base) observeTool(tool, outcome string) {
	if b.observer != nil {
		b.observer.ObserveToolCall(tool, outcome)
	}
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/prompt"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/tasks"
)

// scriptedClient returns queued responses in order and records requests.
type scriptedClient struct {
	mu        sync.Mutex
	responses []brain.Response
	errs      []error
	requests  []brain.Request
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Generate(_ context.Context, req brain.Request) (brain.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return brain.Response{}, c.errs[i]
	}
	if i >= len(c.responses) {
		return brain.Response{}, fmt.Errorf("unexpected call %d", i)
	}
	return c.responses[i], nil
}

type recordingObserver struct {
	stages []string
	tools  []string
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveToolCall(tool, outcome string) {
	o.tools = append(o.tools, tool+":"+outcome)
}

func toolCall(name, args string) brain.ToolCall {
	return brain.ToolCall{ID: "id_" + name, Name: name, Arguments: json.RawMessage(args)}
}

func newToolAgent(t *testing.T, client brain.Client, obs Observer) Dispatcher {
	t.Helper()
	persona, err := prompt.LookupPersona("sparky")
	require.NoError(t, err)
	d, err := NewDispatcher(ModeTools, client, Options{Persona: persona, Window: prompt.DefaultWindow, Observer: obs})
	require.NoError(t, err)
	return d
}

func TestToolAgentPlainReply(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{{Text: " Hi there! "}}}
	st := session.NewState()

	reply, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "hello")

	require.NoError(t, err)
	require.Equal(t, Reply{Text: "Hi there!"}, reply)
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Len(t, req.Tools, 3)
	require.Equal(t, brain.ToolChoiceAuto, req.ToolChoice)
	require.NotNil(t, req.Temperature)
	require.InDelta(t, 0.7, *req.Temperature, 1e-9)
	require.Contains(t, req.System, "Sparky")
	require.Contains(t, req.System, prompt.NoTasksMarker)
	require.Equal(t, []brain.Message{{Role: brain.RoleUser, Content: "hello"}}, req.Messages)
}

func TestToolAgentEmptyResponseFallsBack(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{{StopReason: "SAFETY"}}}
	st := session.NewState("Buy milk")

	reply, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "hello")

	require.NoError(t, err)
	require.Equal(t, Reply{Text: FallbackReply}, reply)
	require.Len(t, client.requests, 1)
	require.Equal(t, 1, st.Tasks.Len())
}

func TestToolAgentZeroTemperatureOverride(t *testing.T) {
	persona, err := prompt.LookupPersona("sparky")
	require.NoError(t, err)
	zero := 0.0
	client := &scriptedClient{responses: []brain.Response{{Text: "ok"}}}
	d, err := NewDispatcher(ModeTools, client, Options{Persona: persona, Temperature: &zero})
	require.NoError(t, err)

	_, err = d.Respond(context.Background(), session.NewState(), "hi")

	require.NoError(t, err)
	require.NotNil(t, client.requests[0].Temperature)
	require.Zero(t, *client.requests[0].Temperature)
}

func TestToolAgentRunsOnlyFirstToolCall(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{
		{ToolCalls: []brain.ToolCall{
			toolCall("add_task", `{"task":"Buy milk"}`),
			toolCall("add_task", `{"task":"Call mom"}`),
		}},
		{Text: "Added Buy milk for you."},
	}}
	obs := &recordingObserver{}
	st := session.NewState()

	reply, err := newToolAgent(t, client, obs).Respond(context.Background(), st, "add milk and call mom")

	require.NoError(t, err)
	require.Equal(t, "Added Buy milk for you.", reply.Text)
	require.Equal(t, "add_task", reply.Tool)
	require.Equal(t, "Task 'Buy milk' was added successfully!", reply.ToolOutput)
	require.Equal(t, []tasks.Task{{Text: "Buy milk"}}, st.Tasks.Snapshot())
	require.Equal(t, []string{"add_task:ok"}, obs.tools)

	require.Len(t, client.requests, 2)
	second := client.requests[1]
	require.Equal(t, brain.ToolChoiceNone, second.ToolChoice)
	require.Len(t, second.Messages, 3)
	require.Equal(t, brain.RoleAssistant, second.Messages[1].Role)
	require.Len(t, second.Messages[1].ToolCalls, 1)
	require.Equal(t, brain.Message{
		Role:       brain.RoleTool,
		ToolCallID: "id_add_task",
		ToolName:   "add_task",
		Content:    "Task 'Buy milk' was added successfully!",
	}, second.Messages[2])
}

func TestToolAgentInvalidArgumentsDoNotMutate(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{
		{ToolCalls: []brain.ToolCall{toolCall("add_task", `{"task":""}`)}},
		{Text: "Sorry, what should I add?"},
	}}
	obs := &recordingObserver{}
	st := session.NewState("existing")

	reply, err := newToolAgent(t, client, obs).Respond(context.Background(), st, "add")

	require.NoError(t, err)
	require.Equal(t, "Sorry, what should I add?", reply.Text)
	require.True(t, strings.HasPrefix(reply.ToolOutput, "Error: "))
	require.Equal(t, 1, st.Tasks.Len())
	require.Equal(t, []string{"add_task:" + ToolOutcomeInvalid}, obs.tools)
	require.Equal(t, reply.ToolOutput, client.requests[1].Messages[2].Content)
}

func TestToolAgentUnknownToolDoesNotMutate(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{
		{ToolCalls: []brain.ToolCall{toolCall("delete_task", `{"task":"existing"}`)}},
		{Text: "I can't delete tasks."},
	}}
	st := session.NewState("existing")

	_, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "delete existing")

	require.NoError(t, err)
	require.Equal(t, []tasks.Task{{Text: "existing"}}, st.Tasks.Snapshot())
}

func TestToolAgentEmptyFinalTextUsesToolOutput(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{
		{ToolCalls: []brain.ToolCall{toolCall("show_task", `{}`)}},
		{Text: "   "},
	}}
	st := session.NewState("Buy milk", "Call mom")

	reply, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "show my tasks")

	require.NoError(t, err)
	require.Equal(t, "Here is your current to-do list:\n1. [ ] Buy milk\n2. [ ] Call mom", reply.Text)
}

func TestToolAgentPropagatesModelError(t *testing.T) {
	boom := errors.New("upstream unavailable")
	client := &scriptedClient{errs: []error{boom}}
	st := session.NewState()

	_, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "hello")

	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, st.Tasks.Len())
}

func TestToolAgentKeepsMutationWhenSecondCallFails(t *testing.T) {
	boom := errors.New("upstream unavailable")
	client := &scriptedClient{
		responses: []brain.Response{{ToolCalls: []brain.ToolCall{toolCall("add_task", `{"task":"Buy milk"}`)}}},
		errs:      []error{nil, boom},
	}
	st := session.NewState()

	reply, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "add milk")

	require.ErrorIs(t, err, boom)
	require.Equal(t, "add_task", reply.Tool)
	require.Equal(t, 1, st.Tasks.Len())
}

func TestToolAgentForwardsWindowedHistory(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{{Text: "ok"}}}
	st := session.NewState()
	for i := range 10 {
		role := memory.RoleUser
		if i%2 == 1 {
			role = memory.RoleAssistant
		}
		st.History.Append(role, fmt.Sprintf("m%d", i))
	}

	_, err := newToolAgent(t, client, nil).Respond(context.Background(), st, "next")

	require.NoError(t, err)
	msgs := client.requests[0].Messages
	require.Len(t, msgs, 7)
	require.Equal(t, "m4", msgs[0].Content)
	require.Equal(t, brain.RoleUser, msgs[0].Role)
	require.Equal(t, brain.RoleAssistant, msgs[5].Role)
	require.Equal(t, "next", msgs[6].Content)
	require.Equal(t, 10, st.History.Len())
}

func newCompletionAgent(t *testing.T, client brain.Client) Dispatcher {
	t.Helper()
	persona, err := prompt.LookupPersona("concise")
	require.NoError(t, err)
	d, err := NewDispatcher(ModeCompletion, client, Options{Persona: persona, Window: prompt.DefaultWindow})
	require.NoError(t, err)
	return d
}

func TestCompletionAgentEmptyTextFallsBack(t *testing.T) {
	for _, text := range []string{"", "  \n\t"} {
		client := &scriptedClient{responses: []brain.Response{{Text: text}}}
		reply, err := newCompletionAgent(t, client).Respond(context.Background(), session.NewState(), "hi")
		require.NoError(t, err)
		require.Equal(t, "Sorry, I could not generate a response.", reply.Text)
	}
}

func TestCompletionAgentSendsRenderedPromptWithoutTools(t *testing.T) {
	client := &scriptedClient{responses: []brain.Response{{Text: "Sure."}}}
	st := session.NewState("Buy milk")
	st.History.Append(memory.RoleUser, "hi")
	st.History.Append(memory.RoleAssistant, "hello")

	reply, err := newCompletionAgent(t, client).Respond(context.Background(), st, "add Call mom")

	require.NoError(t, err)
	require.Equal(t, Reply{Text: "Sure."}, reply)
	req := client.requests[0]
	require.Empty(t, req.Tools)
	require.Empty(t, req.System)
	require.Len(t, req.Messages, 1)
	require.Contains(t, req.Messages[0].Content, "1. [ ] Buy milk")
	require.Contains(t, req.Messages[0].Content, "User: hi\nAssistant: hello\n")
	require.True(t, strings.HasSuffix(req.Messages[0].Content, "User: add Call mom\nAssistant:"))
	require.NotNil(t, req.Temperature)
	require.InDelta(t, 0.3, *req.Temperature, 1e-9)
	require.Equal(t, 1, st.Tasks.Len())
}

func TestCompletionAgentPropagatesModelError(t *testing.T) {
	boom := errors.New("bad key")
	client := &scriptedClient{errs: []error{boom}}
	_, err := newCompletionAgent(t, client).Respond(context.Background(), session.NewState(), "hi")
	require.ErrorIs(t, err, boom)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeTools, m)

	m, err = ParseMode(" Completion ")
	require.NoError(t, err)
	require.Equal(t, ModeCompletion, m)

	_, err = ParseMode("chain")
	require.Error(t, err)
}

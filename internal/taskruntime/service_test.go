package taskruntime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/sparky/internal/agent"
	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/confirm"
	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/observability"
	"github.com/ent0n29/sparky/internal/prompt"
	"github.com/ent0n29/sparky/internal/session"
)

var metricsSeq atomic.Int64

type failingClient struct{ err error }

func (failingClient) Name() string { return "failing" }

func (c failingClient) Generate(context.Context, brain.Request) (brain.Response, error) {
	return brain.Response{}, c.err
}

func newService(t *testing.T, mode agent.Mode, client brain.Client, seed ...string) (*Service, string) {
	t.Helper()
	persona, err := prompt.LookupPersona("")
	require.NoError(t, err)
	d, err := agent.NewDispatcher(mode, client, agent.Options{Persona: persona, Window: prompt.DefaultWindow})
	require.NoError(t, err)

	sessions := session.NewManager(time.Minute)
	sessions.SetSeedTasks(seed)
	metrics := observability.NewMetrics(fmt.Sprintf("test_taskruntime_%d", metricsSeq.Add(1)))
	svc := New(Config{Provider: client.Name()}, sessions, d, metrics)
	return svc, sessions.Create(persona.ID).ID
}

func TestChatAddsTaskThroughTool(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient())

	res, err := svc.Chat(context.Background(), id, "add Buy milk")

	require.NoError(t, err)
	require.NotEmpty(t, res.TurnID)
	require.Equal(t, "add_task", res.Tool)
	require.Equal(t, "Done! Task 'Buy milk' was added successfully!", res.Reply)
	require.Equal(t, []TaskView{{Position: 1, Text: "Buy milk"}}, res.Snapshot.Tasks)

	turns, err := svc.History(id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, memory.RoleUser, turns[0].Role)
	require.Equal(t, "add Buy milk", turns[0].Content)
	require.Equal(t, memory.RoleAssistant, turns[1].Role)
	require.Equal(t, res.Reply, turns[1].Content)
}

func TestChatCompletionModeNeverMutates(t *testing.T) {
	svc, id := newService(t, agent.ModeCompletion, brain.NewMockClient())

	res, err := svc.Chat(context.Background(), id, "add Buy milk")

	require.NoError(t, err)
	require.Empty(t, res.Tool)
	require.Equal(t, "I heard you: add Buy milk", res.Reply)
	require.Empty(t, res.Snapshot.Tasks)
}

func TestChatModelFailureRecordsUserTurnOnly(t *testing.T) {
	boom := &brain.StatusError{Provider: "failing", Code: 503}
	svc, id := newService(t, agent.ModeTools, failingClient{err: boom})

	_, err := svc.Chat(context.Background(), id, "hello")

	var brainErr *BrainError
	require.ErrorAs(t, err, &brainErr)
	require.Equal(t, "upstream_503", brainErr.Code)
	require.True(t, brainErr.Retryable)
	require.ErrorIs(t, err, boom)

	turns, err := svc.History(id)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, memory.RoleUser, turns[0].Role)
}

func TestChatRejectsBlankAndUnknownSession(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient())

	_, err := svc.Chat(context.Background(), id, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Chat(context.Background(), "missing", "hello")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestAddTaskManualEntry(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient())

	_, err := svc.AddTask(id, "  ")
	require.ErrorIs(t, err, ErrEmptyTask)

	res, err := svc.AddTask(id, "  Call mom ")
	require.NoError(t, err)
	require.Equal(t, "Task 'Call mom' was added successfully!", res.Message)
	require.Equal(t, []TaskView{{Position: 1, Text: "Call mom"}}, res.Snapshot.Tasks)
}

func TestSetCompletedTogglesFlag(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient(), "a", "b")

	snap, err := svc.SetCompleted(id, 2, true)
	require.NoError(t, err)
	require.True(t, snap.Tasks[1].Completed)
	require.False(t, snap.Tasks[0].Completed)

	_, err = svc.SetCompleted(id, 3, true)
	require.ErrorIs(t, err, ErrTaskOutOfRange)
}

func TestRemovalWorkflow(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient(), "a", "b", "c")

	_, err := svc.MarkDone(id, 0)
	require.ErrorIs(t, err, ErrTaskOutOfRange)

	_, err = svc.MarkDone(id, 1)
	require.NoError(t, err)
	snap, err := svc.MarkDone(id, 3)
	require.NoError(t, err)
	require.Equal(t, RemovalView{
		State:    confirm.StatePendingConfirm,
		Position: 3,
		Task:     "c",
		Prompt:   "Did you complete the task: 'c'?",
	}, snap.Removal)

	res, err := svc.ConfirmRemoval(id)
	require.NoError(t, err)
	require.True(t, res.Removed)
	require.Equal(t, "Great job on finishing 'c'!", res.Notice)
	require.Len(t, res.Snapshot.Tasks, 2)
	require.Equal(t, confirm.StateIdle, res.Snapshot.Removal.State)

	again, err := svc.ConfirmRemoval(id)
	require.NoError(t, err)
	require.False(t, again.Removed)
	require.Len(t, again.Snapshot.Tasks, 2)
}

func TestCancelRemovalKeepsTasks(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient(), "a", "b")

	_, err := svc.MarkDone(id, 1)
	require.NoError(t, err)
	snap, err := svc.CancelRemoval(id)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 2)
	require.Equal(t, RemovalView{State: confirm.StateIdle}, snap.Removal)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	svc, id := newService(t, agent.ModeTools, brain.NewMockClient())
	events, cancel := svc.Subscribe(id)
	defer cancel()

	_, err := svc.AddTask(id, "Buy milk")
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, id, ev.SessionID)
		require.Equal(t, "task_add", ev.Cause)
		require.Len(t, ev.Snapshot.Tasks, 1)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	cancel()
	_, ok := <-events
	require.False(t, ok)
}

func TestEndedSessionRejectsActions(t *testing.T) {
	persona, err := prompt.LookupPersona("")
	require.NoError(t, err)
	d, err := agent.NewDispatcher(agent.ModeTools, brain.NewMockClient(), agent.Options{Persona: persona})
	require.NoError(t, err)
	sessions := session.NewManager(time.Minute)
	svc := New(Config{}, sessions, d, nil)
	id := sessions.Create(persona.ID).ID
	_, err = sessions.End(id)
	require.NoError(t, err)

	_, err = svc.AddTask(id, "x")
	require.True(t, errors.Is(err, session.ErrEnded))
}

package taskruntime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/sparky/internal/agent"
	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/logging"
	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/observability"
	"github.com/ent0n29/sparky/internal/policy"
	"github.com/ent0n29/sparky/internal/reliability"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/tasks"
	"github.com/ent0n29/sparky/internal/tools"
)

// EmptyTaskNotice is shown when manual entry is blank.
const EmptyTaskNotice = "Please enter a task."

var (
	ErrEmptyTask      = errors.New("empty task")
	ErrEmptyMessage   = errors.New("empty message")
	ErrTaskOutOfRange = errors.New("task position out of range")
)

// BrainError is a failed model call surfaced from a chat turn.
type BrainError struct {
	Provider  string
	Code      string
	Retryable bool
	Err       error
}

func (e *BrainError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *BrainError) Unwrap() error { return e.Err }

type Config struct {
	// Provider names the model backend in metrics and errors.
	Provider string
	Logger   *slog.Logger
}

// Service executes user actions against sessions. Every action runs under
// the session's turn lock, so actions on one session never interleave.
type Service struct {
	sessions   *session.Manager
	dispatcher agent.Dispatcher
	metrics    *observability.Metrics
	provider   string
	logger     *slog.Logger
	events     *broker
}

func New(cfg Config, sessions *session.Manager, dispatcher agent.Dispatcher, metrics *observability.Metrics) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	provider := strings.TrimSpace(cfg.Provider)
	if provider == "" {
		provider = "unknown"
	}
	return &Service{
		sessions:   sessions,
		dispatcher: dispatcher,
		metrics:    metrics,
		provider:   provider,
		logger:     logger.With("component", "taskruntime"),
		events:     newBroker(),
	}
}

func (s *Service) Mode() agent.Mode {
	return s.dispatcher.Mode()
}

// Subscribe streams snapshots for one session until cancel is called.
func (s *Service) Subscribe(sessionID string) (<-chan Event, func()) {
	return s.events.subscribe(sessionID)
}

// Chat runs one conversational turn. The user turn is recorded even when the
// model call fails; the assistant turn only on success.
func (s *Service) Chat(ctx context.Context, sessionID, text string) (ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, ErrEmptyMessage
	}

	turnID := uuid.NewString()
	logger := s.logger.With("session_id", sessionID, "turn_id", turnID, "mode", string(s.dispatcher.Mode()))
	logger.Debug("turn started", "input", policy.LogSnippet(text, 120))

	start := time.Now()
	var (
		result  ChatResult
		snap    Snapshot
		changed bool
	)
	err := s.sessions.WithState(sessionID, func(st *session.State) error {
		reply, err := s.dispatcher.Respond(ctx, st, text)
		st.History.Append(memory.RoleUser, text)
		snap = snapshotOf(st)
		changed = reply.Tool == tools.NameAddTask || reply.Tool == tools.NameEditTask
		if err != nil {
			return err
		}
		st.History.Append(memory.RoleAssistant, reply.Text)
		result = ChatResult{
			TurnID:     turnID,
			Reply:      reply.Text,
			Tool:       reply.Tool,
			ToolOutput: reply.ToolOutput,
			Snapshot:   snap,
		}
		return nil
	})
	elapsed := time.Since(start)

	if changed {
		s.publish(sessionID, "chat", snap)
	}

	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrEnded) {
			return ChatResult{}, err
		}
		class := reliability.Classify(err, brain.HTTPStatus(err))
		s.observeTurn("error", elapsed)
		if s.metrics != nil {
			s.metrics.ObserveBrainError(s.provider, class.Code)
		}
		logger.Error("turn failed", "error", err, "code", class.Code, "retryable", class.Retryable)
		return ChatResult{TurnID: turnID}, &BrainError{Provider: s.provider, Code: class.Code, Retryable: class.Retryable, Err: err}
	}

	s.observeTurn("ok", elapsed)
	logger.Info("turn completed", "tool", result.Tool, "latency_ms", elapsed.Milliseconds())
	return result, nil
}

// AddTask is manual entry. It bypasses the model and behaves like add_task.
func (s *Service) AddTask(sessionID, text string) (AddResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return AddResult{}, ErrEmptyTask
	}
	var out AddResult
	err := s.sessions.WithState(sessionID, func(st *session.State) error {
		out.Message = tools.Execute(st.Tasks, tools.AddTask{Task: text})
		out.Snapshot = snapshotOf(st)
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveToolCall(tools.NameAddTask, "manual")
	}
	s.publish(sessionID, "task_add", out.Snapshot)
	return out, nil
}

// SetCompleted toggles the completed flag of the task at a 1-based position.
func (s *Service) SetCompleted(sessionID string, position int, completed bool) (Snapshot, error) {
	snap, err := s.mutate(sessionID, func(st *session.State) error {
		if err := st.Tasks.SetCompleted(position-1, completed); err != nil {
			return outOfRange(err)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.publish(sessionID, "task_toggle", snap)
	return snap, nil
}

// MarkDone asks for confirmation before removing the task at position.
// A newer mark replaces any pending one.
func (s *Service) MarkDone(sessionID string, position int) (Snapshot, error) {
	snap, err := s.mutate(sessionID, func(st *session.State) error {
		if _, err := st.Tasks.Get(position - 1); err != nil {
			return outOfRange(err)
		}
		st.Removal.Mark(position - 1)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.publish(sessionID, "removal_pending", snap)
	return snap, nil
}

func (s *Service) ConfirmRemoval(sessionID string) (RemovalResult, error) {
	var out RemovalResult
	err := s.sessions.WithState(sessionID, func(st *session.State) error {
		removed, ok := st.Removal.Confirm(st.Tasks)
		if ok {
			out.Removed = true
			out.Task = removed.Text
			out.Notice = CompletedNotice(removed.Text)
		}
		out.Snapshot = snapshotOf(st)
		return nil
	})
	if err != nil {
		return RemovalResult{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSessionEvent("removal_confirmed")
	}
	s.publish(sessionID, "removal_confirmed", out.Snapshot)
	return out, nil
}

func (s *Service) CancelRemoval(sessionID string) (Snapshot, error) {
	snap, err := s.mutate(sessionID, func(st *session.State) error {
		st.Removal.Cancel()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.publish(sessionID, "removal_canceled", snap)
	return snap, nil
}

func (s *Service) Snapshot(sessionID string) (Snapshot, error) {
	return s.mutate(sessionID, func(*session.State) error { return nil })
}

func (s *Service) History(sessionID string) ([]memory.Turn, error) {
	var turns []memory.Turn
	err := s.sessions.WithState(sessionID, func(st *session.State) error {
		turns = st.History.All()
		return nil
	})
	return turns, err
}

func (s *Service) mutate(sessionID string, fn func(*session.State) error) (Snapshot, error) {
	var snap Snapshot
	err := s.sessions.WithState(sessionID, func(st *session.State) error {
		if err := fn(st); err != nil {
			return err
		}
		snap = snapshotOf(st)
		return nil
	})
	return snap, err
}

func (s *Service) publish(sessionID, cause string, snap Snapshot) {
	s.events.publish(Event{SessionID: sessionID, Cause: cause, Snapshot: snap})
}

func (s *Service) observeTurn(outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveTurn(string(s.dispatcher.Mode()), outcome, d)
	}
}

func outOfRange(err error) error {
	if errors.Is(err, tasks.ErrOutOfRange) {
		return fmt.Errorf("%w: %v", ErrTaskOutOfRange, err)
	}
	return err
}

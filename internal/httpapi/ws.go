package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/sparky/internal/protocol"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/taskruntime"
)

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if s.runtime == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "turn runtime not configured")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	if sess.Status == session.StatusEnded {
		respondRuntimeError(w, session.ErrEnded)
		return
	}
	initial, err := s.runtime.Snapshot(sessionID)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.observeSessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := s.runtime.Subscribe(sessionID)
	defer unsubscribe()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	outbound <- snapshotMessage(sessionID, "connected", initial)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			var msg any
			select {
			case <-ctx.Done():
				return
			case m := <-outbound:
				msg = m
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg = snapshotMessage(ev.SessionID, ev.Cause, ev.Snapshot)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.observeWSMessage("outbound", string(t))
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the queue is saturated.
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.observeWSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.observeSessionEvent("ws_disconnected")
}

// runConnection executes client messages in arrival order. Task list changes
// reach the client through the runtime's snapshot events, not from here.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}
	fail := func(source string, err error) {
		_, code, retryable := classifyRuntimeError(err)
		detail := err.Error()
		if code == "empty_task" {
			detail = taskruntime.EmptyTaskNotice
		}
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      code,
			Source:    source,
			Retryable: retryable,
			Detail:    detail,
		})
	}
	notice := func(code, detail string) {
		send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: code, Detail: detail})
	}

	for msg := range inbound {
		switch m := msg.(type) {
		case protocol.ChatMessage:
			notice("thinking", "")
			res, err := s.runtime.Chat(ctx, sessionID, m.Text)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				fail("agent", err)
				continue
			}
			send(protocol.AssistantReply{
				Type:       protocol.TypeAssistantReply,
				SessionID:  sessionID,
				TurnID:     res.TurnID,
				Text:       res.Reply,
				Tool:       res.Tool,
				ToolOutput: res.ToolOutput,
			})
		case protocol.TaskAdd:
			res, err := s.runtime.AddTask(sessionID, m.Text)
			if err != nil {
				fail("tasks", err)
				continue
			}
			notice("task_added", res.Message)
		case protocol.TaskToggle:
			if _, err := s.runtime.SetCompleted(sessionID, m.Position, m.Completed); err != nil {
				fail("tasks", err)
			}
		case protocol.TaskMarkDone:
			snap, err := s.runtime.MarkDone(sessionID, m.Position)
			if err != nil {
				fail("tasks", err)
				continue
			}
			notice("confirm_removal", snap.Removal.Prompt)
		case protocol.ClientControl:
			switch m.Action {
			case protocol.ActionConfirmRemoval:
				res, err := s.runtime.ConfirmRemoval(sessionID)
				if err != nil {
					fail("tasks", err)
					continue
				}
				if res.Removed {
					notice("task_completed", res.Notice)
				}
			case protocol.ActionCancelRemoval:
				if _, err := s.runtime.CancelRemoval(sessionID); err != nil {
					fail("tasks", err)
				}
			}
		}
	}
}

func snapshotMessage(sessionID, cause string, snap taskruntime.Snapshot) protocol.TaskListSnapshot {
	tasks := snap.Tasks
	if tasks == nil {
		tasks = []taskruntime.TaskView{}
	}
	return protocol.TaskListSnapshot{
		Type:      protocol.TypeTaskListSnapshot,
		SessionID: sessionID,
		Cause:     cause,
		Tasks:     tasks,
		Removal:   snap.Removal,
	}
}

func (s *Server) observeWSMessage(direction, msgType string) {
	if s.metrics != nil {
		s.metrics.ObserveWSMessage(direction, msgType)
	}
}

func (s *Server) observeSessionEvent(event string) {
	if s.metrics != nil {
		s.metrics.ObserveSessionEvent(event)
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ChatMessage:
		return m.Type, true
	case protocol.TaskAdd:
		return m.Type, true
	case protocol.TaskToggle:
		return m.Type, true
	case protocol.TaskMarkDone:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.TaskListSnapshot:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

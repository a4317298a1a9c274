package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage   MessageType = "chat_message"
	TypeTaskAdd       MessageType = "task_add"
	TypeTaskToggle    MessageType = "task_toggle"
	TypeTaskMarkDone  MessageType = "task_mark_done"
	TypeClientControl MessageType = "client_control"

	TypeAssistantReply   MessageType = "assistant_reply"
	TypeTaskListSnapshot MessageType = "task_list_snapshot"
	TypeSystemEvent      MessageType = "system_event"
	TypeErrorEvent       MessageType = "error_event"
)

// Control actions carried by client_control.
const (
	ActionConfirmRemoval = "confirm_removal"
	ActionCancelRemoval  = "cancel_removal"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ChatMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type TaskAdd struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type TaskToggle struct {
	Type      MessageType `json:"type"`
	Position  int         `json:"position"`
	Completed bool        `json:"completed"`
}

type TaskMarkDone struct {
	Type     MessageType `json:"type"`
	Position int         `json:"position"`
}

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

type AssistantReply struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	TurnID     string      `json:"turn_id"`
	Text       string      `json:"text"`
	Tool       string      `json:"tool,omitempty"`
	ToolOutput string      `json:"tool_output,omitempty"`
}

// TaskListSnapshot carries the whole list; clients replace rather than patch.
type TaskListSnapshot struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Cause     string      `json:"cause"`
	Tasks     any         `json:"tasks"`
	Removal   any         `json:"removal"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid chat_message")
		}
		return msg, nil
	case TypeTaskAdd:
		var msg TaskAdd
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeTaskToggle:
		var msg TaskToggle
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Position <= 0 {
			return nil, errors.New("invalid task_toggle")
		}
		return msg, nil
	case TypeTaskMarkDone:
		var msg TaskMarkDone
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Position <= 0 {
			return nil, errors.New("invalid task_mark_done")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionConfirmRemoval, ActionCancelRemoval:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}

package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"chat_message","text":"add Buy milk"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	chat, ok := msg.(ChatMessage)
	if !ok {
		t.Fatalf("message type = %T, want ChatMessage", msg)
	}
	if chat.Text != "add Buy milk" {
		t.Fatalf("Text = %q, want %q", chat.Text, "add Buy milk")
	}
}

func TestParseClientMessageRejectsBlankChat(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"chat_message","text":"  "}`)); err == nil {
		t.Fatalf("expected error for blank chat_message")
	}
}

// Blank manual entries are answered with a notice, not a parse error.
func TestParseClientMessageTaskAddAllowsBlank(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"task_add","text":""}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(TaskAdd); !ok {
		t.Fatalf("message type = %T, want TaskAdd", msg)
	}
}

func TestParseClientMessageToggle(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"task_toggle","position":2,"completed":true}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	toggle, ok := msg.(TaskToggle)
	if !ok {
		t.Fatalf("message type = %T, want TaskToggle", msg)
	}
	if toggle.Position != 2 || !toggle.Completed {
		t.Fatalf("unexpected toggle: %+v", toggle)
	}

	if _, err := ParseClientMessage([]byte(`{"type":"task_toggle","position":0}`)); err == nil {
		t.Fatalf("expected error for position 0")
	}
}

func TestParseClientMessageMarkDone(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"task_mark_done","position":1}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if done, ok := msg.(TaskMarkDone); !ok || done.Position != 1 {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	for _, action := range []string{ActionConfirmRemoval, ActionCancelRemoval} {
		msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":"` + action + `"}`))
		if err != nil {
			t.Fatalf("ParseClientMessage(%s) error = %v", action, err)
		}
		if control, ok := msg.(ClientControl); !ok || control.Action != action {
			t.Fatalf("unexpected message: %#v", msg)
		}
	}

	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"stop"}`)); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

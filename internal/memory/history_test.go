package memory

import (
	"fmt"
	"testing"
)

func TestHistoryRecentReturnsChronologicalTail(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.Append(RoleUser, fmt.Sprintf("m%d", i))
	}

	got := h.Recent(6)
	if len(got) != 6 {
		t.Fatalf("len(Recent(6)) = %d, want 6", len(got))
	}
	for i, turn := range got {
		want := fmt.Sprintf("m%d", i+4)
		if turn.Content != want {
			t.Fatalf("Recent(6)[%d] = %q, want %q", i, turn.Content, want)
		}
	}
	if h.Len() != 10 {
		t.Fatalf("Len() = %d after Recent, want 10", h.Len())
	}
}

func TestHistoryRecentCopiesTurns(t *testing.T) {
	h := NewHistory()
	h.Append(RoleUser, "hello")

	got := h.Recent(0)
	got[0].Content = "changed"
	if h.All()[0].Content != "hello" {
		t.Fatalf("stored turn mutated through Recent() result")
	}
}

func TestHistoryRecentShortHistory(t *testing.T) {
	h := NewHistory()
	h.Append(RoleUser, "a")
	h.Append(RoleAssistant, "b")
	if got := h.Recent(6); len(got) != 2 {
		t.Fatalf("len(Recent(6)) = %d, want 2", len(got))
	}
}

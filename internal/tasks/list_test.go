package tasks

import (
	"errors"
	"testing"
)

func TestListAddKeepsInsertionOrder(t *testing.T) {
	l := NewList()
	l.Add("Buy milk")
	l.Add("Call mom")
	l.Add("Buy milk")

	got := l.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"Buy milk", "Call mom", "Buy milk"}
	for i, w := range want {
		if got[i].Text != w {
			t.Fatalf("task[%d] = %q, want %q", i, got[i].Text, w)
		}
		if got[i].Completed {
			t.Fatalf("task[%d] completed = true, want false", i)
		}
	}
}

func TestListIndexOfReturnsFirstMatch(t *testing.T) {
	l := NewList("a", "b", "a")
	if got := l.IndexOf("a"); got != 0 {
		t.Fatalf("IndexOf(a) = %d, want 0", got)
	}
	if got := l.IndexOf("missing"); got != -1 {
		t.Fatalf("IndexOf(missing) = %d, want -1", got)
	}
}

func TestListRenameKeepsCompleted(t *testing.T) {
	l := NewList("a", "b")
	if err := l.SetCompleted(1, true); err != nil {
		t.Fatalf("SetCompleted() error = %v", err)
	}
	if err := l.Rename(1, "c"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	got, err := l.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Text != "c" || !got.Completed {
		t.Fatalf("task = %+v, want {c true}", got)
	}
}

func TestListRemoveShiftsLaterTasks(t *testing.T) {
	l := NewList("a", "b", "c")
	removed, err := l.Remove(1)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed.Text != "b" {
		t.Fatalf("removed = %q, want b", removed.Text)
	}
	if got := Format(l.Snapshot()); got != "1. [ ] a\n2. [ ] c" {
		t.Fatalf("Format() = %q", got)
	}
}

func TestListOutOfRange(t *testing.T) {
	l := NewList("a")
	for _, i := range []int{-1, 1, 5} {
		if _, err := l.Remove(i); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Remove(%d) error = %v, want ErrOutOfRange", i, err)
		}
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
}

func TestFormatAnnotatesCompletion(t *testing.T) {
	got := Format([]Task{{Text: "Buy milk"}, {Text: "Call mom", Completed: true}})
	if got != "1. [ ] Buy milk\n2. [✓] Call mom" {
		t.Fatalf("Format() = %q", got)
	}
}

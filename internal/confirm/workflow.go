// Package confirm gates task removal behind an explicit user decision.
package confirm

import "github.com/ent0n29/sparky/internal/tasks"

type State string

const (
	StateIdle           State = "idle"
	StatePendingConfirm State = "pending_confirm"
)

// Workflow holds at most one pending removal. The zero value is Idle.
type Workflow struct {
	index   int
	pending bool
}

// Mark requests removal of task i. A newer mark replaces any pending one.
func (w *Workflow) Mark(i int) {
	w.index = i
	w.pending = true
}

func (w *Workflow) Pending() (int, bool) {
	if !w.pending {
		return 0, false
	}
	return w.index, true
}

func (w *Workflow) State() State {
	if w.pending {
		return StatePendingConfirm
	}
	return StateIdle
}

// Confirm removes the pending task from list and returns to Idle. If nothing
// is pending or the index no longer exists, the list is left untouched.
func (w *Workflow) Confirm(list *tasks.List) (tasks.Task, bool) {
	i, ok := w.Pending()
	w.reset()
	if !ok {
		return tasks.Task{}, false
	}
	removed, err := list.Remove(i)
	if err != nil {
		return tasks.Task{}, false
	}
	return removed, true
}

// Cancel drops the pending removal and reports whether one existed.
func (w *Workflow) Cancel() bool {
	_, ok := w.Pending()
	w.reset()
	return ok
}

func (w *Workflow) reset() {
	w.index = 0
	w.pending = false
}

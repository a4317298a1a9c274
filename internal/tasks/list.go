package tasks

import "fmt"

// List is an ordered task list owned by exactly one session. It is not safe
// for concurrent use; callers serialize access per session.
type List struct {
	items []Task
}

func NewList(seed ...string) *List {
	l := &List{items: make([]Task, 0, len(seed))}
	for _, text := range seed {
		l.Add(text)
	}
	return l
}

func (l *List) Len() int {
	return len(l.items)
}

// Add appends a new, not yet completed task. Callers validate text.
func (l *List) Add(text string) Task {
	t := Task{Text: text}
	l.items = append(l.items, t)
	return t
}

func (l *List) Get(i int) (Task, error) {
	if err := l.check(i); err != nil {
		return Task{}, err
	}
	return l.items[i], nil
}

// Snapshot returns a copy of the tasks in insertion order.
func (l *List) Snapshot() []Task {
	out := make([]Task, len(l.items))
	copy(out, l.items)
	return out
}

// IndexOf returns the index of the first task whose text equals text exactly,
// or -1. Duplicates after the first match are never considered.
func (l *List) IndexOf(text string) int {
	for i, t := range l.items {
		if t.Text == text {
			return i
		}
	}
	return -1
}

// Rename replaces the text of task i in place, keeping its completed flag.
func (l *List) Rename(i int, text string) error {
	if err := l.check(i); err != nil {
		return err
	}
	l.items[i].Text = text
	return nil
}

func (l *List) SetCompleted(i int, completed bool) error {
	if err := l.check(i); err != nil {
		return err
	}
	l.items[i].Completed = completed
	return nil
}

// Remove deletes task i and shifts later tasks down by one position.
func (l *List) Remove(i int) (Task, error) {
	if err := l.check(i); err != nil {
		return Task{}, err
	}
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return removed, nil
}

func (l *List) check(i int) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, i, len(l.items))
	}
	return nil
}

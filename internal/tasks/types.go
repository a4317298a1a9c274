package tasks

import "errors"

var ErrOutOfRange = errors.New("task index out of range")

// Task is a single to-do entry. It has no stable ID: its identity is its
// position in the owning List.
type Task struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// WelcomeTasks are the entries a fresh list can be seeded with.
var WelcomeTasks = []string{
	"Welcome! Add your tasks below.",
	"Use the sidebar chatbot for help.",
}

package session

import (
	"github.com/ent0n29/sparky/internal/confirm"
	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/tasks"
)

// State is the mutable data a session owns. It is handed to callers only
// while they hold the session's turn lock (see Manager.WithState).
type State struct {
	Tasks   *tasks.List
	History *memory.History
	Removal confirm.Workflow
}

func NewState(seed ...string) *State {
	return &State{
		Tasks:   tasks.NewList(seed...),
		History: memory.NewHistory(),
	}
}

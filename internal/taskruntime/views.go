package taskruntime

import (
	"fmt"

	"github.com/ent0n29/sparky/internal/confirm"
	"github.com/ent0n29/sparky/internal/session"
)

// TaskView is a task with its 1-based position.
type TaskView struct {
	Position  int    `json:"position"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type RemovalView struct {
	State    confirm.State `json:"state"`
	Position int           `json:"position,omitempty"`
	Task     string        `json:"task,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
}

type Snapshot struct {
	Tasks   []TaskView  `json:"tasks"`
	Removal RemovalView `json:"removal"`
}

type ChatResult struct {
	TurnID     string   `json:"turn_id"`
	Reply      string   `json:"reply"`
	Tool       string   `json:"tool,omitempty"`
	ToolOutput string   `json:"tool_output,omitempty"`
	Snapshot   Snapshot `json:"snapshot"`
}

type AddResult struct {
	Message  string   `json:"message"`
	Snapshot Snapshot `json:"snapshot"`
}

type RemovalResult struct {
	Removed  bool     `json:"removed"`
	Task     string   `json:"task,omitempty"`
	Notice   string   `json:"notice,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

func snapshotOf(st *session.State) Snapshot {
	items := st.Tasks.Snapshot()
	views := make([]TaskView, 0, len(items))
	for i, t := range items {
		views = append(views, TaskView{Position: i + 1, Text: t.Text, Completed: t.Completed})
	}
	return Snapshot{Tasks: views, Removal: removalOf(st)}
}

func removalOf(st *session.State) RemovalView {
	i, ok := st.Removal.Pending()
	if !ok {
		return RemovalView{State: confirm.StateIdle}
	}
	view := RemovalView{State: confirm.StatePendingConfirm, Position: i + 1}
	if t, err := st.Tasks.Get(i); err == nil {
		view.Task = t.Text
		view.Prompt = ConfirmPrompt(t.Text)
	}
	return view
}

func ConfirmPrompt(task string) string {
	return fmt.Sprintf("Did you complete the task: '%s'?", task)
}

func CompletedNotice(task string) string {
	return fmt.Sprintf("Great job on finishing '%s'!", task)
}

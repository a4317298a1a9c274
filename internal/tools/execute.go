package tools

import (
	"fmt"

	"github.com/ent0n29/sparky/internal/tasks"
)

const (
	EmptyListMessage = "The to-do list is empty."
	listHeader       = "Here is your current to-do list:"
)

// Execute runs a validated call against list and returns the confirmation
// text handed back to the model. Lookup failures are reported in the
// returned text, never as errors.
func Execute(list *tasks.List, call Call) string {
	switch c := call.(type) {
	case AddTask:
		return addTask(list, c.Task)
	case ShowTasks:
		return showTasks(list)
	case EditTask:
		return editTask(list, c.Current, c.New)
	default:
		return fmt.Sprintf("Error: unsupported tool %T.", call)
	}
}

// ErrorResult renders a rejected call as tool output.
func ErrorResult(err error) string {
	return fmt.Sprintf("Error: %v.", err)
}

func addTask(list *tasks.List, text string) string {
	list.Add(text)
	return fmt.Sprintf("Task '%s' was added successfully!", text)
}

func showTasks(list *tasks.List) string {
	if list.Len() == 0 {
		return EmptyListMessage
	}
	return listHeader + "\n" + tasks.Format(list.Snapshot())
}

func editTask(list *tasks.List, current, next string) string {
	i := list.IndexOf(current)
	if i < 0 {
		return fmt.Sprintf("Error: Could not find a task named '%s'.", current)
	}
	// IndexOf only returns in-range indexes.
	_ = list.Rename(i, next)
	return fmt.Sprintf("Successfully updated task from '%s' to '%s'.", current, next)
}

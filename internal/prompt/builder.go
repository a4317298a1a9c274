// Package prompt assembles the bounded context sent to the language model on
// every turn: persona, task snapshot and the most recent conversation turns.
package prompt

import (
	"strings"

	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/tasks"
)

const (
	DefaultWindow = 6

	// NoTasksMarker stands in for the task snapshot when the list is empty.
	NoTasksMarker = "No tasks yet."
)

type Builder struct {
	System string
	// Window is the number of most recent turns forwarded. Zero or less
	// forwards the whole history.
	Window int
}

type Context struct {
	System string
	Tasks  string
	Turns  []memory.Turn
}

// Build never modifies history; Turns is a copy.
func (b Builder) Build(snapshot []tasks.Task, history *memory.History) Context {
	ctx := Context{
		System: b.System,
		Tasks:  RenderTasks(snapshot),
	}
	if history != nil {
		ctx.Turns = history.Recent(b.Window)
	}
	return ctx
}

func RenderTasks(snapshot []tasks.Task) string {
	if len(snapshot) == 0 {
		return NoTasksMarker
	}
	return tasks.Format(snapshot)
}

// SystemPrompt is the persona followed by the current task snapshot, used as
// the system instruction in tool-calling mode.
func (c Context) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.System))
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("Current tasks:\n")
	b.WriteString(c.Tasks)
	return b.String()
}

// Render flattens the context and the new input into a single completion
// prompt ending with an open assistant line.
func (c Context) Render(input string) string {
	var b strings.Builder
	b.WriteString(c.SystemPrompt())
	b.WriteString("\n\n")
	if len(c.Turns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range c.Turns {
			b.WriteString(roleLabel(t.Role))
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(input)
	b.WriteString("\nAssistant:")
	return b.String()
}

func roleLabel(r memory.Role) string {
	if r == memory.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

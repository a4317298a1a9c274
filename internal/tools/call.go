package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Call is a validated tool invocation. The set of implementations is closed:
// AddTask, ShowTasks and EditTask. A turn without a Call is a plain reply.
type Call interface {
	ToolName() string
	isCall()
}

type AddTask struct {
	Task     string
	Describe string
}

type ShowTasks struct{}

type EditTask struct {
	Current string
	New     string
}

func (AddTask) ToolName() string   { return NameAddTask }
func (ShowTasks) ToolName() string { return NameShowTask }
func (EditTask) ToolName() string  { return NameEditTask }

func (AddTask) isCall()   {}
func (ShowTasks) isCall() {}
func (EditTask) isCall()  {}

// ArgumentError reports a tool call the model produced that does not match
// any declared tool or fails that tool's schema.
type ArgumentError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ArgumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid call to %s: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid call to %s: %s", e.Tool, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

type addTaskArgs struct {
	Task     string `json:"task"`
	Describe string `json:"describe"`
}

type editTaskArgs struct {
	Current string `json:"current_task_name"`
	New     string `json:"new_task_name"`
}

// Parse decodes raw model arguments for the named tool, validates them
// against the tool's schema and returns the typed call.
func Parse(name string, raw json.RawMessage) (Call, error) {
	name = strings.TrimSpace(name)
	spec, ok := lookup(name)
	if !ok {
		return nil, &ArgumentError{Tool: name, Reason: "unknown tool"}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &ArgumentError{Tool: name, Reason: "arguments are not a JSON object", Err: err}
	}
	if err := spec.Parameters.VisitJSON(generic); err != nil {
		return nil, &ArgumentError{Tool: name, Reason: "schema validation failed", Err: err}
	}

	switch name {
	case NameAddTask:
		var args addTaskArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &ArgumentError{Tool: name, Reason: "decode arguments", Err: err}
		}
		task := strings.TrimSpace(args.Task)
		if task == "" {
			return nil, &ArgumentError{Tool: name, Reason: "task must not be blank"}
		}
		return AddTask{Task: task, Describe: strings.TrimSpace(args.Describe)}, nil
	case NameShowTask:
		return ShowTasks{}, nil
	case NameEditTask:
		var args editTaskArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &ArgumentError{Tool: name, Reason: "decode arguments", Err: err}
		}
		current := strings.TrimSpace(args.Current)
		next := strings.TrimSpace(args.New)
		if current == "" || next == "" {
			return nil, &ArgumentError{Tool: name, Reason: "task names must not be blank"}
		}
		return EditTask{Current: current, New: next}, nil
	default:
		return nil, &ArgumentError{Tool: name, Reason: "unknown tool"}
	}
}

package tools

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	NameAddTask  = "add_task"
	NameShowTask = "show_task"
	NameEditTask = "edit_task"
)

// Spec declares one tool to the language model: a name, a natural-language
// description of when to use it, and the schema its arguments must satisfy.
type Spec struct {
	Name        string
	Description string
	Parameters  *openapi3.Schema
}

var specs = []Spec{
	{
		Name:        NameAddTask,
		Description: "Add a new task to the user's to-do list. Use this when the user wants to add or create a task.",
		Parameters: openapi3.NewObjectSchema().
			WithProperty("task", described(openapi3.NewStringSchema().WithMinLength(1), "The task text to add.")).
			WithProperty("describe", described(openapi3.NewStringSchema(), "Optional longer description of the task.")).
			WithRequired([]string{"task"}),
	},
	{
		Name:        NameShowTask,
		Description: "Show all tasks from the to-do list. Use this when the user wants to see their tasks.",
		Parameters:  openapi3.NewObjectSchema(),
	},
	{
		Name:        NameEditTask,
		Description: "Edit an existing task. Use this to change, update, or edit a task.",
		Parameters: openapi3.NewObjectSchema().
			WithProperty("current_task_name", described(openapi3.NewStringSchema().WithMinLength(1), "The exact current text of the task.")).
			WithProperty("new_task_name", described(openapi3.NewStringSchema().WithMinLength(1), "The replacement text.")).
			WithRequired([]string{"current_task_name", "new_task_name"}),
	},
}

// Specs returns the declared tool set in a stable order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

func lookup(name string) (Spec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// JSONSchema converts the parameter schema to the plain JSON-schema map the
// provider SDKs accept.
func (s Spec) JSONSchema() map[string]any {
	return jsonSchema(s.Parameters)
}

func described(s *openapi3.Schema, description string) *openapi3.Schema {
	s.Description = description
	return s
}

func jsonSchema(schema *openapi3.Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	out := map[string]any{}
	if schema.Type != nil {
		if types := schema.Type.Slice(); len(types) == 1 {
			out["type"] = types[0]
		} else if len(types) > 1 {
			out["type"] = types
		}
	}
	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if schema.MinLength > 0 {
		out["minLength"] = schema.MinLength
	}
	if len(schema.Required) > 0 {
		out["required"] = append([]string(nil), schema.Required...)
	}
	if schema.Type != nil && schema.Type.Is(openapi3.TypeObject) {
		props := make(map[string]any, len(schema.Properties))
		for name, ref := range schema.Properties {
			if ref == nil {
				continue
			}
			props[name] = jsonSchema(ref.Value)
		}
		out["properties"] = props
	}
	return out
}

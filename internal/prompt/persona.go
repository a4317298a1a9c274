package prompt

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultPersonaID = "sparky"

type Persona struct {
	ID          string
	System      string
	Temperature float64
}

var personas = map[string]Persona{
	"sparky": {
		ID: "sparky",
		System: `You are a friendly and helpful AI companion named Sparky.
Your primary role is to help the user manage their to-do list by adding, showing, and editing tasks.
However, you can also engage in casual conversation. Be friendly, encouraging, and natural in your responses.
When managing tasks, be concise and confirm when actions are completed.`,
		Temperature: 0.7,
	},
	"concise": {
		ID: "concise",
		System: `You are a helpful assistant integrated into a to-do app.
Help the user manage their tasks by adding, showing, and editing them.
Be concise and confirm when actions are completed.`,
		Temperature: 0.3,
	},
}

// LookupPersona resolves a persona by id. An empty id selects the default.
func LookupPersona(id string) (Persona, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = DefaultPersonaID
	}
	p, ok := personas[id]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q (want one of %s)", id, strings.Join(PersonaIDs(), ", "))
	}
	return p, nil
}

func PersonaIDs() []string {
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

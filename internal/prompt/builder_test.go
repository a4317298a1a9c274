package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/tasks"
)

func tenTurns() *memory.History {
	h := memory.NewHistory()
	for i := range 10 {
		role := memory.RoleUser
		if i%2 == 1 {
			role = memory.RoleAssistant
		}
		h.Append(role, fmt.Sprintf("m%d", i))
	}
	return h
}

func TestBuildKeepsLastWindowTurns(t *testing.T) {
	h := tenTurns()
	ctx := Builder{System: "sys", Window: DefaultWindow}.Build(nil, h)

	got := make([]string, 0, len(ctx.Turns))
	for _, turn := range ctx.Turns {
		got = append(got, turn.Content)
	}
	require.Equal(t, []string{"m4", "m5", "m6", "m7", "m8", "m9"}, got)
	require.Equal(t, 10, h.Len())
}

func TestBuildDoesNotAliasHistory(t *testing.T) {
	h := tenTurns()
	ctx := Builder{Window: 3}.Build(nil, h)
	ctx.Turns[0].Content = "changed"

	require.Equal(t, "m7", h.All()[7].Content)
}

func TestBuildWindowZeroForwardsAll(t *testing.T) {
	ctx := Builder{Window: 0}.Build(nil, tenTurns())
	require.Len(t, ctx.Turns, 10)
}

func TestBuildTaskSnapshot(t *testing.T) {
	b := Builder{System: "sys", Window: DefaultWindow}

	empty := b.Build(nil, memory.NewHistory())
	require.Equal(t, NoTasksMarker, empty.Tasks)

	list := tasks.NewList("Buy milk", "Call mom")
	require.NoError(t, list.SetCompleted(1, true))
	full := b.Build(list.Snapshot(), memory.NewHistory())
	require.Equal(t, "1. [ ] Buy milk\n2. [✓] Call mom", full.Tasks)
	require.Equal(t, "sys\n\nCurrent tasks:\n1. [ ] Buy milk\n2. [✓] Call mom", full.SystemPrompt())
}

func TestRenderCompletionPrompt(t *testing.T) {
	h := memory.NewHistory()
	h.Append(memory.RoleUser, "hi")
	h.Append(memory.RoleAssistant, "hello!")

	out := Builder{System: "sys", Window: DefaultWindow}.Build(nil, h).Render("add milk")

	require.True(t, strings.HasPrefix(out, "sys\n\nCurrent tasks:\nNo tasks yet.\n\n"))
	require.Contains(t, out, "Conversation so far:\nUser: hi\nAssistant: hello!\n")
	require.True(t, strings.HasSuffix(out, "User: add milk\nAssistant:"))
}

func TestLookupPersona(t *testing.T) {
	p, err := LookupPersona("")
	require.NoError(t, err)
	require.Equal(t, DefaultPersonaID, p.ID)
	require.InDelta(t, 0.7, p.Temperature, 1e-9)
	require.Contains(t, p.System, "Sparky")

	p, err = LookupPersona("Concise")
	require.NoError(t, err)
	require.InDelta(t, 0.3, p.Temperature, 1e-9)

	_, err = LookupPersona("pirate")
	require.Error(t, err)
}

package confirm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/sparky/internal/tasks"
)

func sixTasks() *tasks.List {
	return tasks.NewList("t0", "t1", "t2", "t3", "t4", "t5")
}

func TestWorkflowStartsIdle(t *testing.T) {
	var w Workflow
	_, ok := w.Pending()
	require.False(t, ok)
	require.Equal(t, StateIdle, w.State())
}

func TestWorkflowLastMarkWins(t *testing.T) {
	var w Workflow
	w.Mark(2)
	w.Mark(5)

	i, ok := w.Pending()
	require.True(t, ok)
	require.Equal(t, 5, i)
	require.Equal(t, StatePendingConfirm, w.State())
}

func TestWorkflowConfirmRemovesPendingTask(t *testing.T) {
	list := sixTasks()
	var w Workflow
	w.Mark(2)
	w.Mark(5)

	removed, ok := w.Confirm(list)

	require.True(t, ok)
	require.Equal(t, "t5", removed.Text)
	require.Equal(t, 5, list.Len())
	require.Equal(t, "t2", list.Snapshot()[2].Text)
	require.Equal(t, StateIdle, w.State())
}

func TestWorkflowCancelKeepsList(t *testing.T) {
	list := sixTasks()
	before := list.Snapshot()
	var w Workflow
	w.Mark(3)

	require.True(t, w.Cancel())
	require.Equal(t, before, list.Snapshot())
	require.Equal(t, StateIdle, w.State())
	require.False(t, w.Cancel())
}

func TestWorkflowConfirmStaleIndexIsNoop(t *testing.T) {
	list := tasks.NewList("only")
	var w Workflow
	w.Mark(4)

	_, ok := w.Confirm(list)

	require.False(t, ok)
	require.Equal(t, 1, list.Len())
	require.Equal(t, StateIdle, w.State())
}

func TestWorkflowConfirmWhenIdle(t *testing.T) {
	list := sixTasks()
	var w Workflow
	_, ok := w.Confirm(list)
	require.False(t, ok)
	require.Equal(t, 6, list.Len())
}

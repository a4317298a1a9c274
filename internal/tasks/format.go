package tasks

import (
	"fmt"
	"strings"
)

const (
	markDone = "✓"
	markOpen = " "
)

// FormatLines renders tasks as 1-based, completion-annotated lines:
//
//	1. [ ] Buy milk
//	2. [✓] Call mom
func FormatLines(items []Task) []string {
	lines := make([]string, 0, len(items))
	for i, t := range items {
		mark := markOpen
		if t.Completed {
			mark = markDone
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, mark, t.Text))
	}
	return lines
}

func Format(items []Task) string {
	return strings.Join(FormatLines(items), "\n")
}

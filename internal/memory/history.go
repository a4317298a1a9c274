package memory

import "time"

// History is the append-only conversation log of one session. Windowing
// happens on read; stored turns are never dropped while the session lives.
type History struct {
	turns []Turn
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(role Role, content string) Turn {
	t := Turn{
		Role:    role,
		Content: content,
		At:      time.Now().UTC(),
	}
	h.turns = append(h.turns, t)
	return t
}

func (h *History) Len() int {
	return len(h.turns)
}

// All returns a copy of every stored turn, oldest first.
func (h *History) All() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Recent returns a copy of the last min(limit, Len()) turns in chronological
// order. A non-positive limit returns the whole history.
func (h *History) Recent(limit int) []Turn {
	if limit <= 0 || limit > len(h.turns) {
		limit = len(h.turns)
	}
	out := make([]Turn, 0, limit)
	for i := len(h.turns) - limit; i < len(h.turns); i++ {
		out = append(out, h.turns[i])
	}
	return out
}

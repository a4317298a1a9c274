package taskruntime

import "sync"

// Event is published after every change to a session's task list or
// pending removal, whichever transport caused it.
type Event struct {
	SessionID string   `json:"session_id"`
	Cause     string   `json:"cause"`
	Snapshot  Snapshot `json:"snapshot"`
}

type broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan Event]struct{})}
}

func (b *broker) subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
		})
	}
}

// publish never blocks; a subscriber that falls behind misses snapshots,
// and the next one supersedes them anyway.
func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

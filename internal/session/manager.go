package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session ended")
)

type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	PersonaID      string    `json:"persona_id"`
	ActionCount    int       `json:"action_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	EndedAt        time.Time `json:"ended_at,omitzero"`
}

type entry struct {
	meta  *Session
	state *State

	// turn serializes actions on one session; it is held for the whole
	// action including any model call.
	turn sync.Mutex
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	seed              []string
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		inactivityTimeout: inactivityTimeout,
		endedRetention:    10 * time.Minute,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetEndedRetention controls how long ended sessions stay visible to Get
// before the janitor forgets them.
func (m *Manager) SetEndedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.endedRetention = d
}

// SetSeedTasks sets the tasks every new session's list starts with.
func (m *Manager) SetSeedTasks(seed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed = append([]string(nil), seed...)
}

func (m *Manager) Create(personaID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		PersonaID:      personaID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &entry{
		meta:  s,
		state: NewState(m.seed...),
	}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e.meta), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if e.meta.Status != StatusActive {
		return ErrEnded
	}
	e.meta.LastActivityAt = time.Now().UTC()
	return nil
}

// WithState runs fn with exclusive access to the session's state. Calls for
// the same session run one at a time in arrival order of the lock; calls for
// different sessions do not block each other.
func (m *Manager) WithState(sessionID string, fn func(*State) error) error {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.turn.Lock()
	defer e.turn.Unlock()

	m.mu.RLock()
	st, active := e.state, e.meta.Status == StatusActive
	m.mu.RUnlock()
	if !active || st == nil {
		return ErrEnded
	}

	err := fn(st)

	m.mu.Lock()
	e.meta.LastActivityAt = time.Now().UTC()
	e.meta.ActionCount++
	m.mu.Unlock()
	return err
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	m.endLocked(e, time.Now().UTC())
	return clone(e.meta), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.sessions {
		if e.meta.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, e := range m.sessions {
		s := e.meta
		if s.Status != StatusActive {
			if now.Sub(s.EndedAt) >= m.endedRetention {
				delete(m.sessions, id)
			}
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		m.endLocked(e, now)
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

// endLocked marks the session ended and drops its state; there is no
// persistence, so tasks and history are gone after this.
func (m *Manager) endLocked(e *entry, now time.Time) {
	if e.meta.Status == StatusEnded {
		return
	}
	e.meta.Status = StatusEnded
	e.meta.LastActivityAt = now
	e.meta.EndedAt = now
	e.state = nil
}

func clone(s *Session) *Session {
	c := *s
	return &c
}

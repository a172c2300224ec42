package intake

import (
	"sync"
	"time"
)

// Session is the in-memory progress record of one sender.
type Session struct {
	Stage     Stage
	Fields    map[string]string
	UpdatedAt time.Time
}

// NewSession returns a session parked at the menu.
func NewSession(now time.Time) Session {
	return Session{Stage: StageMenu, Fields: map[string]string{}, UpdatedAt: now}
}

// Clone returns a deep copy so callers never share the Fields map.
func (s Session) Clone() Session {
	out := Session{Stage: s.Stage, UpdatedAt: s.UpdatedAt, Fields: make(map[string]string, len(s.Fields))}
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return out
}

// SessionStore owns per-sender sessions. Lock must be held by the caller
// across a read-modify-write of one sender's session.
type SessionStore interface {
	Lock(sender string) (unlock func())
	GetOrCreate(sender string) (Session, bool)
	Get(sender string) (Session, bool)
	Save(sender string, s Session)
	Remove(sender string)
}

// MemorySessionStore keeps sessions in process memory. Sessions are lost on
// restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	locks    map[string]*senderLock
	now      func() time.Time
}

type senderLock struct {
	sync.Mutex
	refs int
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		locks:    make(map[string]*senderLock),
		now:      time.Now,
	}
}

var _ SessionStore = (*MemorySessionStore)(nil)

// Lock acquires the sender's mutex. The returned func releases it and is
// safe to call once.
func (m *MemorySessionStore) Lock(sender string) func() {
	m.mu.Lock()
	l, ok := m.locks[sender]
	if !ok {
		l = &senderLock{}
		m.locks[sender] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.Unlock()
			m.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, sender)
			}
			m.mu.Unlock()
		})
	}
}

// GetOrCreate returns the sender's session, creating one at the menu stage
// when none exists. The bool is true when the session was created.
func (m *MemorySessionStore) GetOrCreate(sender string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sender]; ok {
		return s.Clone(), false
	}
	s := NewSession(m.now())
	m.sessions[sender] = s
	return s.Clone(), true
}

// Get returns a copy of the sender's session.
func (m *MemorySessionStore) Get(sender string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sender]
	if !ok {
		return Session{}, false
	}
	return s.Clone(), true
}

// Save stores a copy of s for sender.
func (m *MemorySessionStore) Save(sender string, s Session) {
	s = s.Clone()
	s.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[sender] = s
	m.mu.Unlock()
}

// Remove drops the sender's session.
func (m *MemorySessionStore) Remove(sender string) {
	m.mu.Lock()
	delete(m.sessions, sender)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions untouched for longer than idle and returns how
// many were dropped. Senders currently holding their lock are skipped.
func (m *MemorySessionStore) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sender, s := range m.sessions {
		if _, busy := m.locks[sender]; busy {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, sender)
			removed++
		}
	}
	return removed
}

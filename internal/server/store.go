package server

import (
	"sync"
	"time"

	"github.com/goliatone/go-stepform/pkg/session"
)

// entry is one browser session. mu serializes every access to sess.
type entry struct {
	mu       sync.Mutex
	id       string
	token    string
	sess     *session.Session
	fetching bool
	lastSeen time.Time
}

// store keeps browser sessions keyed by cookie id and expires idle ones.
type store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func newStore(ttl time.Duration, now func() time.Time) *store {
	return &store{entries: make(map[string]*entry), ttl: ttl, now: now}
}

func (s *store) put(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.lastSeen = s.now()
	s.entries[e.id] = e
}

// get returns the live entry for id and refreshes its idle timer.
func (s *store) get(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	e.lastSeen = now
	return e, true
}

func (s *store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// sweep drops idle entries and returns how many were removed.
func (s *store) sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

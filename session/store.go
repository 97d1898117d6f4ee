package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/nexa/logging"
)

// Store maps session IDs to state. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	now      func() time.Time
	logger   *logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*State),
		now:      time.Now,
		logger:   logging.New().WithComponent("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session with a fresh random ID.
func (s *Store) Create() (*State, error) {
	st, err := NewState(uuid.New().String(), s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[st.ID()] = st
	s.mu.Unlock()

	s.logger.Debug("session_created", map[string]interface{}{"session": st.ID()})
	return st, nil
}

// Get returns the session and marks it as seen.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	st, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		st.touch(s.now())
	}
	return st, ok
}

// End discards a session.
func (s *Store) End(id string) {
	s.mu.Lock()
	st, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		_ = st.Close()
		s.logger.Debug("session_ended", map[string]interface{}{"session": id})
	}
}

// Sweep ends every session idle for at least maxIdle and returns how many
// were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*State
	for id, st := range s.sessions {
		if !st.LastSeen().After(cutoff) {
			stale = append(stale, st)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, st := range stale {
		_ = st.Close()
	}
	if len(stale) > 0 {
		s.logger.Info("sessions_expired", map[string]interface{}{"count": len(stale)})
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every session.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*State)
	s.mu.Unlock()
	for _, st := range sessions {
		_ = st.Close()
	}
}

package memory

import (
	"context"
	"sync"
	"time"

	"quizmaster/internal/app"
)

const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultTerminalGrace = 2 * time.Minute
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions idle longer than the idle TTL are evicted by Sweep, as are
// finished sessions nobody is watching once the terminal grace has passed.
type SessionStore struct {
	mu            sync.Mutex
	sessions      map[string]*sessionEntry
	idleTTL       time.Duration
	terminalGrace time.Duration
	now           func() time.Time
}

type sessionEntry struct {
	session  *app.QuizSession
	lastSeen time.Time
}

type SessionStoreOption func(*SessionStore)

// WithIdleTTL sets how long a session may go untouched. Zero disables idle eviction.
func WithIdleTTL(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) { s.idleTTL = d }
}

// WithTerminalGrace sets how long a finished, unwatched session is kept
// so its result can still be read.
func WithTerminalGrace(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) { s.terminalGrace = d }
}

func WithStoreClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions:      make(map[string]*sessionEntry),
		idleTTL:       DefaultIdleTTL,
		terminalGrace: DefaultTerminalGrace,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Put(_ context.Context, session *app.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = &sessionEntry{session: session, lastSeen: s.now()}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*app.QuizSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.session, true
}

// Touch marks the session as active.
func (s *SessionStore) Touch(_ context.Context, session *app.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[session.ID()]; ok {
		entry.lastSeen = s.now()
	}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts and closes expired sessions and returns their ids.
func (s *SessionStore) Sweep() []string {
	now := s.now()
	var evicted []*app.QuizSession

	s.mu.Lock()
	for id, entry := range s.sessions {
		idle := now.Sub(entry.lastSeen)
		expired := s.idleTTL > 0 && idle > s.idleTTL
		finished := entry.session.State().Terminal() &&
			entry.session.Subscribers() == 0 &&
			idle > s.terminalGrace
		if expired || finished {
			delete(s.sessions, id)
			evicted = append(evicted, entry.session)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, session := range evicted {
		session.Close()
		ids = append(ids, session.ID())
	}
	return ids
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

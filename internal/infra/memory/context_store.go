package memory

import (
	"context"
	"sync"

	"quizmaster/internal/app"
)

// ContextStore keeps visitor selections in process memory.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]app.SessionContext
}

func NewContextStore() *ContextStore {
	return &ContextStore{contexts: make(map[string]app.SessionContext)}
}

// Load returns an empty context for unknown visitors.
func (s *ContextStore) Load(_ context.Context, visitorID string) (app.SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contexts[visitorID], nil
}

func (s *ContextStore) Save(_ context.Context, visitorID string, sc app.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[visitorID] = sc
	return nil
}

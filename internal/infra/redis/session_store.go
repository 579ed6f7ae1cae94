package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions hold timers and subscribers, so the live objects stay in a local
// store that reaps idle ones; Redis carries a summary per session, rewritten
// on every change, so other instances and operators can see where it stands.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionStore
}

// NewSessionStore keeps summaries for ttl. Local sessions idle for ttl are
// evicted as well; opts tune the local store further.
func NewSessionStore(client *redis.Client, ttl time.Duration, opts ...memory.SessionStoreOption) *SessionStore {
	opts = append([]memory.SessionStoreOption{memory.WithIdleTTL(ttl)}, opts...)
	return &SessionStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionStore(opts...),
	}
}

func (s *SessionStore) Put(ctx context.Context, session *app.QuizSession) error {
	if err := s.local.Put(ctx, session); err != nil {
		return err
	}
	return s.writeSummary(ctx, session)
}

// Touch rewrites the session summary and refreshes its TTL.
func (s *SessionStore) Touch(ctx context.Context, session *app.QuizSession) error {
	_ = s.local.Touch(ctx, session)
	return s.writeSummary(ctx, session)
}

func (s *SessionStore) writeSummary(ctx context.Context, session *app.QuizSession) error {
	raw, err := json.Marshal(session.View().Summary())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID()), raw, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (*app.QuizSession, bool) {
	session, ok := s.local.Get(ctx, id)
	if ok {
		// best-effort liveness refresh
		_ = s.client.Expire(ctx, sessionKey(id), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(ctx context.Context, id string) {
	s.local.Delete(ctx, id)
	_ = s.client.Del(ctx, sessionKey(id)).Err()
}

// Sweep evicts expired local sessions. Their summaries stay until the key expires.
func (s *SessionStore) Sweep() []string {
	return s.local.Sweep()
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, every time.Duration) {
	s.local.Run(ctx, every)
}

// Summary reads the stored summary for a session, which may live on another instance.
func (s *SessionStore) Summary(ctx context.Context, id string) (app.SessionSummary, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if IsMiss(err) {
		return app.SessionSummary{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return app.SessionSummary{}, err
	}
	var summary app.SessionSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return app.SessionSummary{}, err
	}
	return summary, nil
}

func sessionKey(id string) string {
	return "quiz:session:" + id
}

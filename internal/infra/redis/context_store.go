package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quizmaster/internal/app"
)

// ContextStore keeps each visitor's selections in a hash:
// HSET context:{visitorID} selectedStudent {json} selectedClassroom {json} selectedQuiz {json}
type ContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContextStore(client *redis.Client, ttl time.Duration) *ContextStore {
	return &ContextStore{client: client, ttl: ttl}
}

func (s *ContextStore) Load(ctx context.Context, visitorID string) (app.SessionContext, error) {
	fields, err := s.client.HGetAll(ctx, contextKey(visitorID)).Result()
	if err != nil {
		return app.SessionContext{}, err
	}
	return app.ContextFromFields(fields)
}

// Save replaces the stored selections. Unset selections are removed.
func (s *ContextStore) Save(ctx context.Context, visitorID string, sc app.SessionContext) error {
	fields, err := sc.Fields()
	if err != nil {
		return err
	}
	key := contextKey(visitorID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) == 0 {
			return nil
		}
		values := make([]interface{}, 0, len(fields)*2)
		for k, v := range fields {
			values = append(values, k, v)
		}
		pipe.HSet(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

func contextKey(visitorID string) string {
	return "context:" + visitorID
}

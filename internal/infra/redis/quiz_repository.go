package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
)

// QuizRepository caches quiz bundles in Redis as JSON and falls back to a
// loader on cache miss. Bundles are stored as: SET quiz:{publicID}:bundle {json}
type QuizRepository struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error) {
	key := bundleKey(publicID)
	if bundle, ok := r.cached(ctx, key); ok {
		return bundle, nil
	}

	result, err, _ := r.sf.Do(publicID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bundle, ok := r.cached(ctx, key); ok {
			return bundle, nil
		}

		bundle, err := r.loader.GetQuizByPublicID(ctx, publicID)
		if err != nil {
			return domain.QuizBundle{}, err
		}

		// best effort; a failed write only costs a reload
		if raw, err := json.Marshal(bundle); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return bundle, nil
	})
	if err != nil {
		return domain.QuizBundle{}, err
	}
	return result.(domain.QuizBundle), nil
}

// Invalidate removes a cached bundle.
func (r *QuizRepository) Invalidate(ctx context.Context, publicID string) error {
	return r.client.Del(ctx, bundleKey(publicID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, key string) (domain.QuizBundle, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuizBundle{}, false
	}
	var bundle domain.QuizBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		// corrupt entry, drop it and reload
		_ = r.client.Del(ctx, key).Err()
		return domain.QuizBundle{}, false
	}
	return bundle, true
}

func bundleKey(publicID string) string {
	return "quiz:" + publicID + ":bundle"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// IsMiss reports whether err is a plain cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

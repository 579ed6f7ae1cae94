package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
)

// QuizRepository caches quiz bundles by public code so repeated session
// starts do not hit the backend. Failures are never cached.
type QuizRepository struct {
	loader app.QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBundle
}

type cachedBundle struct {
	bundle    domain.QuizBundle
	expiresAt time.Time
}

func NewQuizRepository(loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBundle),
	}
}

func (r *QuizRepository) GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error) {
	if bundle, ok := r.lookup(publicID); ok {
		return bundle, nil
	}

	result, err, _ := r.sf.Do(publicID, func() (interface{}, error) {
		if bundle, ok := r.lookup(publicID); ok {
			return bundle, nil
		}

		bundle, err := r.loader.GetQuizByPublicID(ctx, publicID)
		if err != nil {
			return domain.QuizBundle{}, err
		}

		r.mu.Lock()
		r.cache[publicID] = cachedBundle{
			bundle:    bundle,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return bundle, nil
	})
	if err != nil {
		return domain.QuizBundle{}, err
	}
	return result.(domain.QuizBundle), nil
}

func (r *QuizRepository) lookup(publicID string) (domain.QuizBundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[publicID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizBundle{}, false
	}
	return entry.bundle, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader serves bundles from a map keyed by public code. It backs
// demos and tests that run without a quiz backend.
type StaticQuizLoader struct {
	bundles map[string]domain.QuizBundle
}

func NewStaticQuizLoader(bundles map[string]domain.QuizBundle) *StaticQuizLoader {
	return &StaticQuizLoader{bundles: bundles}
}

func (l *StaticQuizLoader) GetQuizByPublicID(_ context.Context, publicID string) (domain.QuizBundle, error) {
	if bundle, ok := l.bundles[publicID]; ok {
		return bundle, nil
	}
	return domain.QuizBundle{}, domain.ErrQuizNotFound
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quizmaster/internal/api"
	"quizmaster/internal/app"
	"quizmaster/internal/config"
	"quizmaster/internal/infra/memory"
	"quizmaster/internal/infra/postgres"
	redisinfra "quizmaster/internal/infra/redis"
	"quizmaster/internal/logging"
	"quizmaster/internal/notify"
)

// deps holds the process-wide clients built from config.
type deps struct {
	cfg     config.Config
	log     *zap.Logger
	client  *api.Client
	redis   *redis.Client
	pool    *pgxpool.Pool
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	_ = d.log.Sync()
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	return cfg, nil
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{cfg: cfg, log: logging.New(cfg.Log.Level, cfg.Log.File)}

	d.client = api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: config.TTLDuration(cfg.API.Timeout, 10*time.Second)}),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(d.log.Named("api")),
	)

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
		d.closers = append(d.closers, pool.Close)
	}
	return d, nil
}

// quizLoader picks where quiz content comes from and how it is cached.
func (d *deps) quizLoader() app.QuizLoader {
	var source app.QuizLoader = d.client
	if d.cfg.Quiz.Source == "postgres" && d.pool != nil {
		source = postgres.NewQuizStore(d.pool)
	}
	if shared := d.sharedQuizCache(source); shared != nil {
		return shared
	}
	return memory.NewQuizRepository(source, config.TTLDuration(d.cfg.Quiz.TTL, 10*time.Minute))
}

// sharedQuizCache is the Redis quiz cache over source, nil without Redis.
func (d *deps) sharedQuizCache(source app.QuizLoader) *redisinfra.QuizRepository {
	if d.redis == nil {
		return nil
	}
	return redisinfra.NewQuizRepository(d.redis, source, config.TTLDuration(d.cfg.Quiz.TTL, 10*time.Minute))
}

// reapingSessions is a session repository that evicts stale sessions while Run is active.
type reapingSessions interface {
	app.SessionRepository
	Run(ctx context.Context, every time.Duration)
}

func (d *deps) sessionStore() reapingSessions {
	ttl := config.TTLDuration(d.cfg.Quiz.SessionTTL, memory.DefaultIdleTTL)
	if d.redis != nil {
		return redisinfra.NewSessionStore(d.redis, ttl)
	}
	return memory.NewSessionStore(memory.WithIdleTTL(ttl))
}

// contextStore prefers durable storage: Postgres, then Redis, then memory.
func (d *deps) contextStore() app.ContextStore {
	switch {
	case d.pool != nil:
		return postgres.NewContextStore(d.pool)
	case d.redis != nil:
		return redisinfra.NewContextStore(d.redis, 30*24*time.Hour)
	}
	return memory.NewContextStore()
}

func (d *deps) transport() (notify.Transport, error) {
	n := d.cfg.Notify
	switch n.Transport {
	case "redis":
		if d.redis == nil {
			return nil, fmt.Errorf("notify transport redis needs redis.addr")
		}
		return notify.NewRedisTransport(d.redis), nil
	case "amqp":
		return notify.NewAMQPTransport(n.URL, n.Exchange), nil
	case "websocket":
		return notify.NewWebSocketTransport(n.URL), nil
	case "", "none":
		return notify.NoTransport{}, nil
	}
	return nil, fmt.Errorf("unknown notify transport %q", n.Transport)
}

// publisher returns where submissions are announced. The websocket
// transport is receive-only, so it publishes nothing.
func (d *deps) publisher() (notify.EventPublisher, error) {
	n := d.cfg.Notify
	switch n.Transport {
	case "redis":
		if d.redis == nil {
			return nil, fmt.Errorf("notify transport redis needs redis.addr")
		}
		return notify.NewRedisPublisher(d.redis, n.Channel, n.Event), nil
	case "amqp":
		return notify.NewAMQPPublisher(n.URL, n.Exchange, n.Channel, n.Event)
	}
	return notify.NopPublisher{}, nil
}

func (d *deps) feed() (*notify.Feed, error) {
	transport, err := d.transport()
	if err != nil {
		return nil, err
	}
	return notify.NewFeed(transport, d.cfg.Notify.Channel, d.cfg.Notify.Event,
		notify.WithFeedLogger(d.log.Named("feed"))), nil
}

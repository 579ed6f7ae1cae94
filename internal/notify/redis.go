package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"quizmaster/internal/domain"
)

// RedisTransport subscribes to Redis pub/sub channels.
type RedisTransport struct {
	client *redis.Client
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Subscribe(ctx context.Context, channel string, sub Subscriber) (func() error, error) {
	pubsub := t.client.Subscribe(ctx, channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	sub.status(true, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range pubsub.Channel() {
			sub.OnMessage([]byte(msg.Payload))
		}
		sub.status(false, nil)
	}()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			err = pubsub.Close()
			wg.Wait()
		})
		return err
	}, nil
}

// RedisPublisher publishes submission events to a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	event   string
}

func NewRedisPublisher(client *redis.Client, channel, event string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, event: event}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.SubmissionEvent) error {
	raw, err := Encode(p.channel, p.event, event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, raw).Err()
}

// Close is a no-op; the client is owned by the caller.
func (p *RedisPublisher) Close() error { return nil }

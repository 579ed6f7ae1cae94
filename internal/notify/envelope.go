// Package notify carries quiz submission notifications between processes
// and keeps an in-memory activity feed of what arrived.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizmaster/internal/domain"
)

// Envelope is the wire format every transport shares.
type Envelope struct {
	Channel string          `json:"channel,omitempty"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps payload in an envelope for event on channel.
func Encode(channel, event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Channel: channel, Event: event, Data: data})
}

// Subscriber receives raw envelopes and connection changes from a transport.
type Subscriber struct {
	OnMessage func(raw []byte)
	// OnStatus reports connection changes; err is nil when connected.
	OnStatus func(connected bool, err error)
}

func (s Subscriber) status(connected bool, err error) {
	if s.OnStatus != nil {
		s.OnStatus(connected, err)
	}
}

// Transport subscribes to one channel on some message bus.
type Transport interface {
	// Subscribe delivers messages to sub until the returned function is called.
	Subscribe(ctx context.Context, channel string, sub Subscriber) (unsubscribe func() error, err error)
}

// EventPublisher puts submission events on the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SubmissionEvent) error
	Close() error
}

// NopPublisher discards events; used when no transport is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.SubmissionEvent) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

// ErrNoTransport is reported by the feed when real-time updates are not configured.
var ErrNoTransport = errors.New("real-time updates are not configured")

// NoTransport refuses every subscription.
type NoTransport struct{}

func (NoTransport) Subscribe(context.Context, string, Subscriber) (func() error, error) {
	return nil, ErrNoTransport
}

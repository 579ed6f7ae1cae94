package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizmaster/internal/domain"
	"quizmaster/internal/metrics"
)

// Notification is a received submission event with its local receipt time.
type Notification struct {
	Type       string                 `json:"type"`
	Data       domain.SubmissionEvent `json:"data"`
	ReceivedAt time.Time              `json:"timestamp"`
	Color      string                 `json:"color"`
}

// Feed subscribes to one channel/event pair and keeps the notifications it
// receives, newest first. There is no dedup, persistence or replay.
type Feed struct {
	transport Transport
	channel   string
	event     string
	log       *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	events      []Notification
	connected   bool
	errMsg      string
	unsubscribe func() error
	listeners   map[chan Notification]struct{}
}

type FeedOption func(*Feed)

func WithFeedLogger(log *zap.Logger) FeedOption {
	return func(f *Feed) { f.log = log }
}

func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

func NewFeed(transport Transport, channel, event string, opts ...FeedOption) *Feed {
	f := &Feed{
		transport: transport,
		channel:   channel,
		event:     event,
		log:       zap.NewNop(),
		now:       time.Now,
		listeners: make(map[chan Notification]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start subscribes to the channel. Calling Start on a running feed is a no-op.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.unsubscribe != nil {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	unsubscribe, err := f.transport.Subscribe(ctx, f.channel, Subscriber{
		OnMessage: f.deliver,
		OnStatus:  f.setStatus,
	})
	if err != nil {
		f.setStatus(false, err)
		return err
	}

	f.mu.Lock()
	f.unsubscribe = unsubscribe
	f.mu.Unlock()
	f.log.Info("subscribed to real-time channel", zap.String("channel", f.channel), zap.String("event", f.event))
	return nil
}

// Stop unsubscribes. Received notifications are kept.
func (f *Feed) Stop() error {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.connected = false
	for ch := range f.listeners {
		delete(f.listeners, ch)
		close(ch)
	}
	f.mu.Unlock()

	if unsubscribe == nil {
		return nil
	}
	return unsubscribe()
}

// Events returns received notifications, newest first.
func (f *Feed) Events() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Notification(nil), f.events...)
}

// Connected reports the transport's last known connection state.
func (f *Feed) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

// Err is the last connection error message, empty when healthy.
func (f *Feed) Err() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.errMsg
}

// Listen returns a channel of new notifications. Slow readers lose the
// oldest pending notification rather than blocking delivery.
func (f *Feed) Listen() (<-chan Notification, func()) {
	ch := make(chan Notification, 16)
	f.mu.Lock()
	f.listeners[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.listeners[ch]; ok {
			delete(f.listeners, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) setStatus(connected bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
	if err != nil {
		f.errMsg = "Connection error: " + err.Error()
		f.log.Warn("real-time connection error", zap.String("channel", f.channel), zap.Error(err))
		return
	}
	if connected {
		f.errMsg = ""
	}
}

func (f *Feed) deliver(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		f.log.Warn("dropping malformed envelope", zap.Error(err))
		return
	}
	if env.Event != f.event || (env.Channel != "" && env.Channel != f.channel) {
		return
	}
	var event domain.SubmissionEvent
	if err := json.Unmarshal(env.Data, &event); err != nil {
		f.log.Warn("dropping malformed event", zap.String("event", env.Event), zap.Error(err))
		return
	}

	n := Notification{
		Type:       env.Event,
		Data:       event,
		ReceivedAt: f.now(),
		Color:      QuizColor(event.QuizID),
	}
	metrics.FeedEvents.WithLabelValues(env.Event).Inc()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append([]Notification{n}, f.events...)
	for ch := range f.listeners {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}

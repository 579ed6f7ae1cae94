package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport reads envelopes pushed by a remote websocket endpoint.
// After connecting it sends {"event":"subscribe","channel":...}.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
}

func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

type subscribeFrame struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
}

func (t *WebSocketTransport) Subscribe(ctx context.Context, channel string, sub Subscriber) (func() error, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	if err := conn.WriteJSON(subscribeFrame{Event: "subscribe", Channel: channel}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	sub.status(true, nil)

	var (
		wg       sync.WaitGroup
		stopping = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-stopping:
					sub.status(false, nil)
				default:
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						sub.status(false, nil)
					} else {
						sub.status(false, err)
					}
				}
				return
			}
			sub.OnMessage(raw)
		}
	}()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			close(stopping)
			deadline := time.Now().Add(time.Second)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if werr := conn.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
				err = werr
			}
			if cerr := conn.Close(); err == nil {
				err = cerr
			}
			wg.Wait()
		})
		return err
	}, nil
}

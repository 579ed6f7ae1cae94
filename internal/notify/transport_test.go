package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"quizmaster/internal/domain"
)

func waitForEvents(t *testing.T, feed *Feed, n int) []Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := feed.Events(); len(events) >= n {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", n, len(feed.Events()))
	return nil
}

func TestRedisTransportRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	feed := NewFeed(NewRedisTransport(client), "quiz-events", "student-submitted")
	if err := feed.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer feed.Stop()

	score := 3
	publisher := NewRedisPublisher(client, "quiz-events", "student-submitted")
	if err := publisher.Publish(ctx, domain.SubmissionEvent{ID: "e1", QuizID: "q1", StudentName: "Alice", Score: &score}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	events := waitForEvents(t, feed, 1)
	if events[0].Data.StudentName != "Alice" || events[0].Data.Score == nil || *events[0].Data.Score != 3 {
		t.Fatalf("unexpected event %+v", events[0].Data)
	}
	if !feed.Connected() {
		t.Fatalf("expected connected feed")
	}
}

func TestWebSocketTransportReadsEnvelopes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var frame subscribeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		subscribed <- frame.Channel

		raw, _ := Encode(frame.Channel, "student-submitted", domain.SubmissionEvent{ID: "e1", QuizTitle: "Science Quiz"})
		_ = conn.WriteMessage(websocket.TextMessage, raw)

		// hold the connection until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	feed := NewFeed(NewWebSocketTransport(url), "quiz-events", "student-submitted")
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if got := <-subscribed; got != "quiz-events" {
		t.Fatalf("expected subscribe to quiz-events, got %q", got)
	}
	events := waitForEvents(t, feed, 1)
	if events[0].Data.QuizTitle != "Science Quiz" {
		t.Fatalf("unexpected event %+v", events[0].Data)
	}

	if err := feed.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if feed.Connected() {
		t.Fatalf("expected disconnected after stop")
	}
}

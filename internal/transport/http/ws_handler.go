package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// writePump serializes all writes to conn; gorilla connections allow one writer.
func (s *Server) writePump(conn *websocket.Conn, send <-chan outboundMessage[any], done chan<- struct{}) {
	defer close(done)
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug("ws write error", zap.Error(err))
			return
		}
	}
}

// enqueue hands msg to the writer and reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// serveSessionWS streams session snapshots and accepts quiz actions:
// answer {questionId, selectedAnswer}, move {delta}, jump {index}, submit.
func (s *Server) serveSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := s.quizzes.Session(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go s.writePump(conn, send, writerDone)

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendErr := func(err error) {
		if !enqueue(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: messageFor(err)}}) {
			// the writer is gone; unblock ReadJSON so the loop exits
			_ = conn.Close()
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		// Successful actions are echoed through the subscription.
		switch inbound.Type {
		case "answer":
			var payload answerRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			if _, err := s.quizzes.SelectAnswer(r.Context(), sessionID, payload.QuestionID, payload.SelectedAnswer); err != nil {
				sendErr(err)
			}
		case "move":
			var payload cursorRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			if _, err := s.quizzes.MoveCursor(r.Context(), sessionID, payload.Delta); err != nil {
				sendErr(err)
			}
		case "jump":
			var payload jumpRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errInvalidPayload)
				continue
			}
			if _, err := s.quizzes.JumpTo(r.Context(), sessionID, payload.Index); err != nil {
				sendErr(err)
			}
		case "submit":
			if _, err := s.quizzes.Submit(r.Context(), sessionID); err != nil {
				sendErr(err)
			}
		default:
			sendErr(errUnsupportedMessage)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// serveFeedWS sends the current feed, then each new notification as it arrives.
func (s *Server) serveFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	notifications, cancel := s.feed.Listen()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	go s.writePump(conn, send, writerDone)

	// The feed is read-only; reading only detects the client going away.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	enqueue(send, writerDone, outboundMessage[any]{Type: "snapshot", Payload: s.snapshot()})

loop:
	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				break loop
			}
			select {
			case send <- outboundMessage[any]{Type: "notification", Payload: n}:
			case <-readerDone:
				break loop
			case <-writerDone:
				break loop
			}
		case <-readerDone:
			break loop
		case <-writerDone:
			break loop
		}
	}

	close(send)
	<-writerDone
}

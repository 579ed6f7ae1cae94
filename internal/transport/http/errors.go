package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"quizmaster/internal/domain"
)

var (
	errInvalidPayload     = &domain.ValidationError{Field: "payload", Message: "invalid message payload"}
	errUnsupportedMessage = &domain.ValidationError{Field: "type", Message: "unsupported message type"}
)

type errorResponse struct {
	Error   string `json:"error"`
	Session any    `json:"session,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrIncompleteAnswers):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrClassroomNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMissingStudentContext):
		return http.StatusPreconditionFailed
	}
	// backend failures and anything unexpected
	return http.StatusBadGateway
}

// messageFor is the user-facing text for err.
func messageFor(err error) string {
	var (
		apiErr   *domain.APIError
		validErr *domain.ValidationError
	)
	switch {
	case errors.As(err, &validErr):
		return validErr.Message
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, session any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: messageFor(err), Session: session})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return nil
}

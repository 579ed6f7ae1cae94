package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the backend has no quiz for the given code or id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrClassroomNotFound is returned when a classroom lookup reports 404.
	ErrClassroomNotFound = errors.New("classroom not found")
	// ErrStudentNotFound is returned when an enrollment or delete targets an unknown student.
	ErrStudentNotFound = errors.New("classroom or student not found")
	// ErrAlreadyEnrolled is returned when the student is already in the classroom.
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this classroom")
	// ErrAlreadySubmitted is the backend's one-submission-per-student-per-quiz conflict.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrMissingStudentContext means no student was selected before submitting.
	ErrMissingStudentContext = errors.New("student information is missing")
	// ErrIncompleteAnswers means at least one question has no answer.
	ErrIncompleteAnswers = errors.New("all questions must be answered before submitting")
	// ErrQuestionNotFound indicates an answer references a question outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option is not offered by the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrIndexOutOfRange is returned by direct question jumps outside the quiz.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when a terminal session is mutated.
	ErrSessionClosed = errors.New("quiz session already submitted")
	// ErrSubmitInProgress is returned when a second submit races the first.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrInvalidInput wraps validation failures on teacher writes.
	ErrInvalidInput = errors.New("invalid input")
)

// GenericSubmitMessage is shown when a failed submission carries no server message.
const GenericSubmitMessage = "Failed to submit quiz. Please try again."

// InvalidResponseMessage is shown when the backend answers a submission with an unreadable body.
const InvalidResponseMessage = "Server returned an invalid response format"

// APIError is a non-2xx backend response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// DecodeError reports a payload whose shape does not match the typed model.
type DecodeError struct {
	Endpoint string
	Field    string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Endpoint != "" {
		msg += " " + e.Endpoint
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError describes which field of a teacher write is invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

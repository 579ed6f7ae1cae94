package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"quizmaster/internal/domain"
)

type submitRequest struct {
	QuizID    string          `json:"quizId"`
	StudentID string          `json:"studentId"`
	Answers   []domain.Answer `json:"answers"`
}

type submitResponse struct {
	Submission *domain.SubmissionResult `json:"submission"`
}

// SubmitQuiz sends a completed answer set. The backend enforces one
// submission per student per quiz and reports violations as
// domain.ErrAlreadySubmitted.
func (c *Client) SubmitQuiz(ctx context.Context, quizID, studentID string, answers []domain.Answer) (domain.SubmissionResult, error) {
	const path = "/api/submit-quiz"
	status, data, err := c.do(ctx, http.MethodPost, path, submitRequest{
		QuizID:    quizID,
		StudentID: studentID,
		Answers:   answers,
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	if !ok(status) {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil {
			if status == http.StatusConflict {
				return domain.SubmissionResult{}, domain.ErrAlreadySubmitted
			}
			return domain.SubmissionResult{}, &domain.DecodeError{Endpoint: path, Reason: "server returned an invalid response format", Err: err}
		}
		if eb.AlreadySubmitted || status == http.StatusConflict {
			return domain.SubmissionResult{}, domain.ErrAlreadySubmitted
		}
		c.log.Warn("submit quiz rejected", zap.Int("status", status), zap.String("error", eb.text()))
		return domain.SubmissionResult{}, &domain.APIError{Op: "submit quiz", Status: status, Message: eb.text()}
	}

	resp, err := decode[submitResponse](path, data)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if resp.Submission == nil {
		return domain.SubmissionResult{}, &domain.DecodeError{Endpoint: path, Field: "submission", Reason: "missing submission object"}
	}
	return *resp.Submission, nil
}

// CreatedQuiz is the backend's acknowledgement of a new quiz.
type CreatedQuiz struct {
	ID       string `json:"id"`
	PublicID string `json:"publicId"`
	Title    string `json:"title,omitempty"`
}

func (c *Client) CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (CreatedQuiz, error) {
	if err := quiz.Validate(); err != nil {
		return CreatedQuiz{}, err
	}
	return postJSON[CreatedQuiz](ctx, c, "create quiz", "/api/quizzes", quiz, "Failed to create quiz. Please try again.")
}

func (c *Client) CreateClassroom(ctx context.Context, classroom domain.NewClassroom) (domain.Classroom, error) {
	if err := classroom.Validate(); err != nil {
		return domain.Classroom{}, err
	}
	return postJSON[domain.Classroom](ctx, c, "create classroom", "/api/classrooms", classroom, "Failed to create classroom. Please try again.")
}

// EnrollStudent adds a student to a classroom.
func (c *Client) EnrollStudent(ctx context.Context, classroomID, studentID string) error {
	path := "/api/classrooms/" + url.PathEscape(classroomID) + "/students/enroll"
	status, data, err := c.do(ctx, http.MethodPost, path, map[string]string{"studentId": studentID})
	if err != nil {
		return err
	}
	switch {
	case ok(status):
		return nil
	case status == http.StatusNotFound:
		return domain.ErrStudentNotFound
	case status == http.StatusConflict:
		return domain.ErrAlreadyEnrolled
	}
	apiErr := apiError("enroll student", status, data)
	if apiErr.Message == "" {
		apiErr.Message = "Failed to enroll student. Please try again."
	}
	return apiErr
}

func (c *Client) CreateStudent(ctx context.Context, name string) (domain.Student, error) {
	names := domain.CleanNames([]string{name})
	if len(names) != 1 {
		return domain.Student{}, &domain.ValidationError{Field: "name", Message: "Student name cannot be empty."}
	}
	return postJSON[domain.Student](ctx, c, "create student", "/api/students", map[string]string{"name": names[0]}, "Failed to create student. Please try again.")
}

type bulkCreated struct {
	Created int `json:"created"`
}

// BulkCreateStudents creates one student per non-blank name and returns how many the backend created.
func (c *Client) BulkCreateStudents(ctx context.Context, raw []string) (int, error) {
	names := domain.CleanNames(raw)
	if len(names) == 0 {
		return 0, &domain.ValidationError{Field: "names", Message: "Please enter at least one student name."}
	}
	resp, err := postJSON[bulkCreated](ctx, c, "bulk create students", "/api/students/bulk", map[string][]string{"names": names}, "Failed to create students. Please try again.")
	if err != nil {
		return 0, err
	}
	return resp.Created, nil
}

func (c *Client) DeleteStudent(ctx context.Context, studentID string) error {
	status, data, err := c.do(ctx, http.MethodDelete, "/api/students/"+url.PathEscape(studentID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return domain.ErrStudentNotFound
	}
	if !ok(status) {
		apiErr := apiError("delete student", status, data)
		if apiErr.Message == "" {
			apiErr.Message = "Failed to delete student. Please try again."
		}
		return apiErr
	}
	return nil
}

// postJSON posts payload and decodes a 2xx body into T. fallbackMsg fills
// in for backend errors that carry no message.
func postJSON[T any](ctx context.Context, c *Client, op, path string, payload any, fallbackMsg string) (T, error) {
	var zero T
	status, data, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	if !ok(status) {
		apiErr := apiError(op, status, data)
		if apiErr.Message == "" {
			apiErr.Message = fallbackMsg
		}
		c.log.Warn("backend write failed", zap.String("op", op), zap.Int("status", status))
		return zero, apiErr
	}
	if len(data) == 0 {
		return zero, nil
	}
	return decode[T](path, data)
}

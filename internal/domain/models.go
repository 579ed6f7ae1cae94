package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Quiz is the header of a quiz as returned by the backend.
type Quiz struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublicID    string    `json:"publicId"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Options is the ordered list of answer strings for a question.
// The backend sometimes sends it as a JSON-encoded string, so both shapes decode.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return &DecodeError{Field: "options", Reason: "expected array or string"}
	}
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return &DecodeError{Field: "options", Reason: "string does not hold a JSON array", Err: err}
	}
	*o = list
	return nil
}

// Contains reports whether option is one of the offered answers.
func (o Options) Contains(option string) bool {
	for _, candidate := range o {
		if candidate == option {
			return true
		}
	}
	return false
}

// Question is a multiple choice prompt. Order inside a quiz is fixed by the backend.
type Question struct {
	ID      string  `json:"id"`
	Text    string  `json:"question_text"`
	Options Options `json:"options"`
}

// QuizBundle is a quiz with its questions, the shape served for public lookups.
type QuizBundle struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Answer pairs a question with the selected option text.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
}

// SubmissionResult is the authoritative outcome of a quiz submission.
type SubmissionResult struct {
	SubmissionID   string `json:"id,omitempty"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     int    `json:"percentage"`
}

// SessionState is the lifecycle position of a quiz-taking session.
type SessionState string

const (
	StateLoading          SessionState = "loading"
	StateReady            SessionState = "ready"
	StateSubmitting       SessionState = "submitting"
	StateSubmitted        SessionState = "submitted"
	StateAlreadySubmitted SessionState = "already_submitted"
	StateSubmitError      SessionState = "submit_error"
)

// Terminal reports whether no further answer changes are meaningful.
func (s SessionState) Terminal() bool {
	return s == StateSubmitted || s == StateAlreadySubmitted
}

type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Classroom struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherName string    `json:"teacher_name"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ClassroomStudent is a student enrolled in a classroom.
type ClassroomStudent struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// UnmarshalJSON accepts both "id" and the older "student_id" field.
func (s *ClassroomStudent) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		Name      string    `json:"name"`
		JoinedAt  time.Time `json:"joined_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	if s.ID == "" {
		s.ID = raw.StudentID
	}
	s.Name = raw.Name
	s.JoinedAt = raw.JoinedAt
	return nil
}

// Student returns the plain student reference used in session context.
func (s ClassroomStudent) Student() Student {
	return Student{ID: s.ID, Name: s.Name}
}

// ClassroomMembership is a classroom as listed on a student record.
type ClassroomMembership struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TeacherName string    `json:"teacherName,omitempty"`
	JoinedAt    time.Time `json:"joinedAt,omitempty"`
}

type StudentWithClassrooms struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Classrooms []ClassroomMembership `json:"classrooms"`
}

// AnswerReview is one graded answer inside a quiz result.
type AnswerReview struct {
	QuestionID     string `json:"questionId"`
	QuestionText   string `json:"questionText"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// QuizResult is one student's submission as seen by a teacher.
type QuizResult struct {
	SubmissionID   string         `json:"submissionId"`
	Student        Student        `json:"student"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	Answers        []AnswerReview `json:"answers"`
}

type StudentStat struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

type QuestionStat struct {
	ID                  string `json:"id"`
	Text                string `json:"text"`
	Correct             int    `json:"correct"`
	Incorrect           int    `json:"incorrect"`
	Total               int    `json:"total"`
	CorrectPercentage   int    `json:"correctPercentage"`
	IncorrectPercentage int    `json:"incorrectPercentage"`
}

// QuizStats aggregates results for the teacher analytics view.
type QuizStats struct {
	Quiz             Quiz           `json:"quiz"`
	StudentStats     []StudentStat  `json:"studentStats"`
	QuestionStats    []QuestionStat `json:"questionStats"`
	HardestQuestions []QuestionStat `json:"hardestQuestions"`
}

// SubmissionEvent is pushed on the real-time channel when a student submits.
type SubmissionEvent struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	StudentID      string    `json:"studentId"`
	StudentName    string    `json:"studentName"`
	Timestamp      time.Time `json:"timestamp"`
	Score          *int      `json:"score,omitempty"`
	TotalQuestions *int      `json:"totalQuestions,omitempty"`
	Percentage     *int      `json:"percentage,omitempty"`
}

// NewQuestion is a question authored by a teacher.
type NewQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

type NewQuiz struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Questions   []NewQuestion `json:"questions"`
}

type NewClassroom struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeacherName string `json:"teacher_name"`
}

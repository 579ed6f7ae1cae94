package app

import (
	"time"

	"quizmaster/internal/domain"
)

// SessionView is a read-only snapshot of a QuizSession.
type SessionView struct {
	ID              string                   `json:"id"`
	VisitorID       string                   `json:"visitorId,omitempty"`
	State           domain.SessionState      `json:"state"`
	Quiz            domain.Quiz              `json:"quiz"`
	Questions       []domain.Question        `json:"questions"`
	Cursor          int                      `json:"cursor"`
	Current         *domain.Question         `json:"currentQuestion,omitempty"`
	Answers         map[string]string        `json:"answers"`
	AnsweredCount   int                      `json:"answeredCount"`
	AllAnswered     bool                     `json:"allAnswered"`
	Progress        int                      `json:"progress"`
	UsingSampleData bool                     `json:"usingSampleData"`
	Notice          string                   `json:"notice,omitempty"`
	Result          *domain.SubmissionResult `json:"result,omitempty"`
	Passed          *bool                    `json:"passed,omitempty"`
	Feedback        string                   `json:"feedback,omitempty"`
	Error           string                   `json:"error,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
}

func (s *QuizSession) viewLocked() SessionView {
	questions := append([]domain.Question(nil), s.bundle.Questions...)
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	view := SessionView{
		ID:              s.id,
		VisitorID:       s.visitorID,
		State:           s.state,
		Quiz:            s.bundle.Quiz,
		Questions:       questions,
		Cursor:          s.cursor,
		Answers:         answers,
		AnsweredCount:   len(answers),
		AllAnswered:     s.allAnsweredLocked(),
		UsingSampleData: s.usingSample,
		Notice:          s.notice,
		Error:           s.submitErr,
		CreatedAt:       s.createdAt,
	}
	if n := len(questions); n > 0 {
		current := questions[s.cursor]
		view.Current = &current
		view.Progress = domain.Percentage(s.cursor+1, n)
	}
	if s.result != nil {
		result := *s.result
		passed := domain.Passed(result.Percentage)
		view.Result = &result
		view.Passed = &passed
		view.Feedback = domain.Feedback(result.Percentage)
	}
	if s.state == domain.StateAlreadySubmitted {
		view.Error = "You have already taken this quiz."
	}
	return view
}

// SessionSummary is the slim record of a session that other instances and
// operators can read.
type SessionSummary struct {
	ID        string              `json:"id"`
	VisitorID string              `json:"visitorId,omitempty"`
	QuizID    string              `json:"quizId"`
	State     domain.SessionState `json:"state"`
	Sample    bool                `json:"usingSampleData"`
	Answered  int                 `json:"answeredCount"`
}

func (v SessionView) Summary() SessionSummary {
	return SessionSummary{
		ID:        v.ID,
		VisitorID: v.VisitorID,
		QuizID:    v.Quiz.ID,
		State:     v.State,
		Sample:    v.UsingSampleData,
		Answered:  v.AnsweredCount,
	}
}

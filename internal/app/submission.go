package app

import (
	"context"
	"errors"

	"quizmaster/internal/domain"
	"quizmaster/internal/metrics"
	"quizmaster/internal/sample"
)

// submitAnswers sends answers in question order and normalizes the result.
func submitAnswers(ctx context.Context, submitter Submitter, quizID, studentID string, questions []domain.Question, answers map[string]string) (domain.SubmissionResult, error) {
	formatted := make([]domain.Answer, 0, len(questions))
	for _, q := range questions {
		formatted = append(formatted, domain.Answer{QuestionID: q.ID, SelectedAnswer: answers[q.ID]})
	}

	result, err := submitter.SubmitQuiz(ctx, quizID, studentID, formatted)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			metrics.Submissions.WithLabelValues("already_submitted").Inc()
		} else {
			metrics.Submissions.WithLabelValues("error").Inc()
		}
		return domain.SubmissionResult{}, err
	}

	if result.TotalQuestions <= 0 {
		result.TotalQuestions = len(questions)
	}
	result.Percentage = domain.Percentage(result.Score, result.TotalQuestions)
	metrics.Submissions.WithLabelValues("submitted").Inc()
	return result, nil
}

func gradeSample(questions []domain.Question, answers map[string]string) domain.SubmissionResult {
	metrics.Submissions.WithLabelValues("sample").Inc()
	return domain.GradeLocally(questions, answers, sample.AnswerKey)
}

// SubmitMessage is the text shown for a failed submission.
func SubmitMessage(err error) string {
	var (
		apiErr    *domain.APIError
		decodeErr *domain.DecodeError
	)
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &decodeErr):
		return domain.InvalidResponseMessage
	}
	return domain.GenericSubmitMessage
}

package domain

import (
	"fmt"
	"math"
	"strings"
)

// PassPercentage is the threshold the results view treats as a pass.
const PassPercentage = 70

// Percentage returns round(100*score/total), or 0 for an empty quiz.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

func Passed(percentage int) bool {
	return percentage >= PassPercentage
}

// Feedback is the message shown under a student's result.
func Feedback(percentage int) string {
	switch {
	case percentage >= 90:
		return "Excellent! You're a master of this subject!"
	case percentage >= 70:
		return "Great job! You've done very well!"
	case percentage >= 50:
		return "Good effort! Keep studying to improve."
	default:
		return "Keep practicing! You'll get better with more study."
	}
}

// GradeLocally counts answers matching a known answer key.
func GradeLocally(questions []Question, answers map[string]string, key map[string]string) SubmissionResult {
	score := 0
	for _, q := range questions {
		if correct, ok := key[q.ID]; ok && answers[q.ID] == correct {
			score++
		}
	}
	total := len(questions)
	return SubmissionResult{
		Score:          score,
		TotalQuestions: total,
		Percentage:     Percentage(score, total),
	}
}

// Validate checks a quiz authored by a teacher before it is sent to the backend.
func (q NewQuiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return &ValidationError{Field: "title", Message: "Please enter a quiz title."}
	}
	if len(q.Questions) == 0 {
		return &ValidationError{Field: "questions", Message: "Please add at least one question."}
	}
	for i, question := range q.Questions {
		n := i + 1
		if strings.TrimSpace(question.QuestionText) == "" {
			return &ValidationError{Field: "question_text", Message: fmt.Sprintf("Please enter text for question %d.", n)}
		}
		if len(question.Options) == 0 {
			return &ValidationError{Field: "options", Message: fmt.Sprintf("Please enter all options for question %d.", n)}
		}
		for _, option := range question.Options {
			if strings.TrimSpace(option) == "" {
				return &ValidationError{Field: "options", Message: fmt.Sprintf("Please enter all options for question %d.", n)}
			}
		}
		if strings.TrimSpace(question.CorrectAnswer) == "" {
			return &ValidationError{Field: "correct_answer", Message: fmt.Sprintf("Please select a correct answer for question %d.", n)}
		}
		if !Options(question.Options).Contains(question.CorrectAnswer) {
			return &ValidationError{Field: "correct_answer", Message: fmt.Sprintf("The correct answer for question %d must be one of the options.", n)}
		}
	}
	return nil
}

func (c NewClassroom) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "Please enter a classroom name."}
	}
	if strings.TrimSpace(c.TeacherName) == "" {
		return &ValidationError{Field: "teacher_name", Message: "Please enter the teacher's name."}
	}
	return nil
}

// CleanNames trims bulk-entered student names and drops blank lines.
func CleanNames(raw []string) []string {
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		for _, line := range strings.Split(name, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				names = append(names, trimmed)
			}
		}
	}
	return names
}

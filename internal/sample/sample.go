// Package sample holds the fixed records served when the backend is unreachable.
package sample

import (
	"time"

	"quizmaster/internal/domain"
)

const day = 24 * time.Hour

// AnswerKey grades sessions that run on the sample quiz.
var AnswerKey = map[string]string{
	"q1": "Paris",
	"q2": "Mars",
	"q3": "4",
	"q4": "William Shakespeare",
}

func Students() []domain.Student {
	return []domain.Student{
		{ID: "s1", Name: "Alice Johnson"},
		{ID: "s2", Name: "Bob Smith"},
		{ID: "s3", Name: "Charlie Brown"},
		{ID: "s4", Name: "Diana Miller"},
		{ID: "s5", Name: "Edward Davis"},
	}
}

func Quizzes(now time.Time) []domain.Quiz {
	return []domain.Quiz{
		{ID: "q1", Title: "Math Quiz", Description: "Test your basic math skills", PublicID: "QUIZ-123456", CreatedAt: now.Add(-7 * day)},
		{ID: "q2", Title: "Science Quiz", Description: "Explore the world of science", PublicID: "QUIZ-789012", CreatedAt: now.Add(-3 * day)},
		{ID: "q3", Title: "History Quiz", Description: "Test your knowledge of world history", PublicID: "QUIZ-345678", CreatedAt: now.Add(-1 * day)},
	}
}

func Questions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "What is the capital of France?", Options: domain.Options{"Paris", "London", "Berlin", "Madrid"}},
		{ID: "q2", Text: "Which planet is known as the Red Planet?", Options: domain.Options{"Mars", "Venus", "Jupiter", "Saturn"}},
		{ID: "q3", Text: "What is 2 + 2?", Options: domain.Options{"3", "4", "5", "6"}},
		{ID: "q4", Text: "Who wrote 'Romeo and Juliet'?", Options: domain.Options{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"}},
	}
}

// QuizBundle returns the sample quiz matching publicID, or the first one.
func QuizBundle(publicID string, now time.Time) domain.QuizBundle {
	quizzes := Quizzes(now)
	quiz := quizzes[0]
	for _, q := range quizzes {
		if q.PublicID == publicID {
			quiz = q
			break
		}
	}
	return domain.QuizBundle{Quiz: quiz, Questions: Questions()}
}

func Classrooms(now time.Time) []domain.Classroom {
	return []domain.Classroom{
		{ID: "c1", Name: "Math 101", Description: "Introduction to Mathematics", TeacherName: "Mr. Johnson", CreatedAt: now.Add(-30 * day)},
		{ID: "c2", Name: "Science 202", Description: "Advanced Science Concepts", TeacherName: "Ms. Smith", CreatedAt: now.Add(-15 * day)},
	}
}

func ClassroomStudents(now time.Time) []domain.ClassroomStudent {
	students := Students()
	out := make([]domain.ClassroomStudent, len(students))
	for i, s := range students {
		out[i] = domain.ClassroomStudent{
			ID:       s.ID,
			Name:     s.Name,
			JoinedAt: now.Add(-time.Duration(25-5*i) * day),
		}
	}
	return out
}

func StudentsWithClassrooms() []domain.StudentWithClassrooms {
	students := Students()
	out := make([]domain.StudentWithClassrooms, len(students))
	for i, s := range students {
		out[i] = domain.StudentWithClassrooms{ID: s.ID, Name: s.Name, Classrooms: []domain.ClassroomMembership{}}
	}
	return out
}

func Results(now time.Time) []domain.QuizResult {
	questions := Questions()
	review := func(optionIndex, correctCount int) []domain.AnswerReview {
		answers := make([]domain.AnswerReview, len(questions))
		for i, q := range questions {
			answers[i] = domain.AnswerReview{
				QuestionID:     q.ID,
				QuestionText:   q.Text,
				SelectedAnswer: q.Options[optionIndex],
				IsCorrect:      i < correctCount,
			}
		}
		return answers
	}
	return []domain.QuizResult{
		{SubmissionID: "sub1", Student: domain.Student{ID: "s1", Name: "Alice Johnson"}, Score: 3, TotalQuestions: 4, Percentage: 75, SubmittedAt: now, Answers: review(0, 3)},
		{SubmissionID: "sub2", Student: domain.Student{ID: "s2", Name: "Bob Smith"}, Score: 2, TotalQuestions: 4, Percentage: 50, SubmittedAt: now, Answers: review(1, 2)},
	}
}

func Stats(quizID string) domain.QuizStats {
	questions := Questions()
	questionStats := make([]domain.QuestionStat, len(questions))
	for i, q := range questions {
		odd := i % 2
		questionStats[i] = domain.QuestionStat{
			ID:                  q.ID,
			Text:                q.Text,
			Correct:             2 + odd,
			Incorrect:           2 - odd,
			Total:               4,
			CorrectPercentage:   50 + odd*25,
			IncorrectPercentage: 50 - odd*25,
		}
	}
	return domain.QuizStats{
		Quiz: domain.Quiz{ID: quizID, Title: "Sample Quiz", Description: "This is a sample quiz for testing"},
		StudentStats: []domain.StudentStat{
			{ID: "s1", Name: "Alice Johnson", Correct: 3, Total: 4, Percentage: 75},
			{ID: "s2", Name: "Bob Smith", Correct: 2, Total: 4, Percentage: 50},
			{ID: "s3", Name: "Charlie Brown", Correct: 4, Total: 4, Percentage: 100},
			{ID: "s4", Name: "Diana Miller", Correct: 1, Total: 4, Percentage: 25},
		},
		QuestionStats: questionStats,
		HardestQuestions: []domain.QuestionStat{
			{ID: "q2", Text: "Which planet is known as the Red Planet?", Correct: 1, Incorrect: 3, Total: 4, CorrectPercentage: 25, IncorrectPercentage: 75},
		},
	}
}

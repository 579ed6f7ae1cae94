package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"quizmaster/internal/domain"
	"quizmaster/internal/metrics"
	"quizmaster/internal/sample"
)

// Fetched is the result of a read that may have been served from sample data.
type Fetched[T any] struct {
	Value       T
	UsingSample bool
	// Cause is why sample data was used; nil for live data.
	Cause error
}

// readWithFallback runs fetch and substitutes sample data on any failure
// except the sentinel errors listed in passthrough.
func readWithFallback[T any](c *Client, endpoint string, fetch func() (T, error), fallback func() T, passthrough ...error) (Fetched[T], error) {
	value, err := fetch()
	if err == nil {
		return Fetched[T]{Value: value}, nil
	}
	for _, target := range passthrough {
		if errors.Is(err, target) {
			return Fetched[T]{}, err
		}
	}
	c.log.Warn("backend read failed, using sample data", zap.String("endpoint", endpoint), zap.Error(err))
	metrics.SampleFallbacks.WithLabelValues(endpoint).Inc()
	return Fetched[T]{Value: fallback(), UsingSample: true, Cause: err}, nil
}

func (c *Client) GetStudents(ctx context.Context) Fetched[[]domain.Student] {
	res, _ := readWithFallback(c, "students",
		func() ([]domain.Student, error) {
			return getJSON[[]domain.Student](ctx, c, "get students", "/api/students")
		},
		sample.Students,
	)
	return res
}

func (c *Client) GetStudentsWithClassrooms(ctx context.Context) Fetched[[]domain.StudentWithClassrooms] {
	res, _ := readWithFallback(c, "students_with_classrooms",
		func() ([]domain.StudentWithClassrooms, error) {
			return getJSON[[]domain.StudentWithClassrooms](ctx, c, "get students", "/api/students/with-classrooms")
		},
		sample.StudentsWithClassrooms,
	)
	return res
}

func (c *Client) GetQuizzes(ctx context.Context) Fetched[[]domain.Quiz] {
	res, _ := readWithFallback(c, "quizzes",
		func() ([]domain.Quiz, error) {
			return getJSON[[]domain.Quiz](ctx, c, "get quizzes", "/api/quizzes")
		},
		func() []domain.Quiz { return sample.Quizzes(c.now()) },
	)
	return res
}

func (c *Client) GetClassrooms(ctx context.Context) Fetched[[]domain.Classroom] {
	res, _ := readWithFallback(c, "classrooms",
		func() ([]domain.Classroom, error) {
			return getJSON[[]domain.Classroom](ctx, c, "get classrooms", "/api/classrooms")
		},
		func() []domain.Classroom { return sample.Classrooms(c.now()) },
	)
	return res
}

// GetClassroomStudents lists a classroom's students. A 404 is returned as
// domain.ErrClassroomNotFound; every other failure yields the sample roster.
func (c *Client) GetClassroomStudents(ctx context.Context, classroomID string) (Fetched[[]domain.ClassroomStudent], error) {
	path := "/api/classrooms/" + url.PathEscape(classroomID) + "/students"
	return readWithFallback(c, "classroom_students",
		func() ([]domain.ClassroomStudent, error) {
			list, err := getJSON[classroomStudentList](ctx, c, "get classroom students", path)
			if IsNotFound(err) {
				return nil, domain.ErrClassroomNotFound
			}
			return list, err
		},
		func() []domain.ClassroomStudent { return sample.ClassroomStudents(c.now()) },
		domain.ErrClassroomNotFound,
	)
}

// classroomStudentList decodes either a bare array or {"students": [...]}.
type classroomStudentList []domain.ClassroomStudent

func (l *classroomStudentList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []domain.ClassroomStudent
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var wrapped struct {
		Students *[]domain.ClassroomStudent `json:"students"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil || wrapped.Students == nil {
		return &domain.DecodeError{Field: "students", Reason: "expected array or object with students"}
	}
	*l = *wrapped.Students
	return nil
}

func (c *Client) GetQuizQuestions(ctx context.Context, quizID string) Fetched[[]domain.Question] {
	path := "/api/quiz/" + url.PathEscape(quizID) + "/questions"
	res, _ := readWithFallback(c, "quiz_questions",
		func() ([]domain.Question, error) {
			return getJSON[[]domain.Question](ctx, c, "get questions", path)
		},
		sample.Questions,
	)
	return res
}

func (c *Client) GetQuizResults(ctx context.Context, quizID string) Fetched[[]domain.QuizResult] {
	path := "/api/quiz/" + url.PathEscape(quizID) + "/results"
	res, _ := readWithFallback(c, "quiz_results",
		func() ([]domain.QuizResult, error) {
			return getJSON[[]domain.QuizResult](ctx, c, "get results", path)
		},
		func() []domain.QuizResult { return sample.Results(c.now()) },
	)
	return res
}

func (c *Client) GetQuizStats(ctx context.Context, quizID string) Fetched[domain.QuizStats] {
	path := "/api/quiz/" + url.PathEscape(quizID) + "/stats"
	res, _ := readWithFallback(c, "quiz_stats",
		func() (domain.QuizStats, error) {
			return getJSON[domain.QuizStats](ctx, c, "get stats", path)
		},
		func() domain.QuizStats { return sample.Stats(quizID) },
	)
	return res
}

// GetQuizByPublicID looks up a quiz by its shareable code. It does not fall
// back to sample data; quiz sessions own that policy. A 404 maps to
// domain.ErrQuizNotFound.
func (c *Client) GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error) {
	bundle, err := getJSON[domain.QuizBundle](ctx, c, "get quiz", "/api/quiz/public/"+url.PathEscape(publicID))
	if IsNotFound(err) {
		return domain.QuizBundle{}, domain.ErrQuizNotFound
	}
	return bundle, err
}

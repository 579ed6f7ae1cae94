package app

import (
	"context"
	"encoding/json"
	"fmt"

	"quizmaster/internal/domain"
)

// Storage keys for the selections a visitor carries between views.
const (
	KeySelectedStudent   = "selectedStudent"
	KeySelectedClassroom = "selectedClassroom"
	KeySelectedQuiz      = "selectedQuiz"
)

// SessionContext is what a visitor has picked so far.
type SessionContext struct {
	Student   *domain.Student   `json:"selectedStudent,omitempty"`
	Classroom *domain.Classroom `json:"selectedClassroom,omitempty"`
	Quiz      *domain.Quiz      `json:"selectedQuiz,omitempty"`
}

// ContextStore persists SessionContext per visitor.
type ContextStore interface {
	Load(ctx context.Context, visitorID string) (SessionContext, error)
	Save(ctx context.Context, visitorID string, sc SessionContext) error
}

// Merge returns sc with every non-nil field of patch applied.
func (sc SessionContext) Merge(patch SessionContext) SessionContext {
	if patch.Student != nil {
		sc.Student = patch.Student
	}
	if patch.Classroom != nil {
		sc.Classroom = patch.Classroom
	}
	if patch.Quiz != nil {
		sc.Quiz = patch.Quiz
	}
	return sc
}

// Fields encodes each set selection as JSON under its storage key.
func (sc SessionContext) Fields() (map[string]string, error) {
	fields := make(map[string]string, 3)
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		fields[key] = string(raw)
		return nil
	}
	if sc.Student != nil {
		if err := put(KeySelectedStudent, sc.Student); err != nil {
			return nil, err
		}
	}
	if sc.Classroom != nil {
		if err := put(KeySelectedClassroom, sc.Classroom); err != nil {
			return nil, err
		}
	}
	if sc.Quiz != nil {
		if err := put(KeySelectedQuiz, sc.Quiz); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// ContextFromFields is the inverse of Fields. Unknown keys are ignored.
func ContextFromFields(fields map[string]string) (SessionContext, error) {
	var sc SessionContext
	if raw, ok := fields[KeySelectedStudent]; ok {
		sc.Student = new(domain.Student)
		if err := json.Unmarshal([]byte(raw), sc.Student); err != nil {
			return SessionContext{}, fmt.Errorf("decode %s: %w", KeySelectedStudent, err)
		}
	}
	if raw, ok := fields[KeySelectedClassroom]; ok {
		sc.Classroom = new(domain.Classroom)
		if err := json.Unmarshal([]byte(raw), sc.Classroom); err != nil {
			return SessionContext{}, fmt.Errorf("decode %s: %w", KeySelectedClassroom, err)
		}
	}
	if raw, ok := fields[KeySelectedQuiz]; ok {
		sc.Quiz = new(domain.Quiz)
		if err := json.Unmarshal([]byte(raw), sc.Quiz); err != nil {
			return SessionContext{}, fmt.Errorf("decode %s: %w", KeySelectedQuiz, err)
		}
	}
	return sc, nil
}

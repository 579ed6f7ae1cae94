package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"quizmaster/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		StaticQuizLoader: NewStaticQuizLoader(map[string]domain.QuizBundle{
			"QUIZ-1": sampleBundle(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuizByPublicID(context.Background(), "QUIZ-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	bundle, err := repo.GetQuizByPublicID(context.Background(), "QUIZ-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
	if bundle.Quiz.Title != "Arithmetic" {
		t.Fatalf("unexpected bundle %+v", bundle)
	}
}

func TestQuizRepositoryDoesNotCacheFailures(t *testing.T) {
	loader := &countingLoader{StaticQuizLoader: NewStaticQuizLoader(nil)}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuizByPublicID(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls.Load())
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		StaticQuizLoader: NewStaticQuizLoader(map[string]domain.QuizBundle{"QUIZ-1": sampleBundle()}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuizByPublicID(context.Background(), "QUIZ-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuizByPublicID(context.Background(), "QUIZ-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.calls.Load())
	}
}

type countingLoader struct {
	*StaticQuizLoader
	calls atomic.Int32
}

func (l *countingLoader) GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error) {
	l.calls.Add(1)
	return l.StaticQuizLoader.GetQuizByPublicID(ctx, publicID)
}

func sampleBundle() domain.QuizBundle {
	return domain.QuizBundle{
		Quiz: domain.Quiz{ID: "quiz-1", Title: "Arithmetic", PublicID: "QUIZ-1"},
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: domain.Options{"3", "4"}},
		},
	}
}

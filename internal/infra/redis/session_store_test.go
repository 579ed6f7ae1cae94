package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/memory"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Minute)

	loader := memory.NewStaticQuizLoader(map[string]domain.QuizBundle{"QUIZ-1": sampleBundle()})
	session := app.NewQuizSession("s-1", loader, nil, app.ForVisitor("v-1"))
	session.Load(ctx, "QUIZ-1")

	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	summary, err := store.Summary(ctx, "s-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.QuizID != "quiz-1" || summary.VisitorID != "v-1" || summary.State != domain.StateReady {
		t.Fatalf("unexpected summary %+v", summary)
	}

	store.Delete(ctx, "s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get(ctx, "s-1"); ok {
		t.Fatalf("expected local session removed")
	}
	if _, err := store.Summary(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type fixedSubmitter struct{}

func (fixedSubmitter) SubmitQuiz(_ context.Context, _, _ string, answers []domain.Answer) (domain.SubmissionResult, error) {
	return domain.SubmissionResult{SubmissionID: "sub-1", Score: len(answers), TotalQuestions: len(answers)}, nil
}

func TestSessionSummaryFollowsServiceActions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := newClient(mr)
	contexts := memory.NewContextStore()
	loader := memory.NewStaticQuizLoader(map[string]domain.QuizBundle{"QUIZ-1": sampleBundle()})
	service := app.NewQuizService(NewSessionStore(client, time.Minute), loader, fixedSubmitter{}, contexts)

	_, _ = service.UpdateContext(ctx, "v-1", app.SessionContext{Student: &domain.Student{ID: "s1", Name: "Alice"}})
	view, err := service.Start(ctx, "v-1", "QUIZ-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SelectAnswer(ctx, view.ID, "q1", "4"); err != nil {
		t.Fatalf("select: %v", err)
	}

	store := NewSessionStore(client, time.Minute)
	summary, err := store.Summary(ctx, view.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.State != domain.StateReady || summary.Answered != 1 {
		t.Fatalf("expected answered count recorded, got %+v", summary)
	}

	if _, err := service.Submit(ctx, view.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	summary, err = store.Summary(ctx, view.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.State != domain.StateSubmitted {
		t.Fatalf("expected submitted state in redis, got %+v", summary)
	}

	// A second instance does not hold the session but can still describe it.
	other := app.NewQuizService(store, loader, fixedSubmitter{}, contexts)
	if _, err := other.View(ctx, view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session to live on the first instance only, got %v", err)
	}
	remote, err := other.Summary(ctx, view.ID)
	if err != nil || remote.State != domain.StateSubmitted || remote.QuizID != "quiz-1" {
		t.Fatalf("unexpected remote summary %+v err=%v", remote, err)
	}
}

func TestSessionStoreEvictsIdleLocalSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	store := NewSessionStore(newClient(mr), 5*time.Minute, memory.WithStoreClock(func() time.Time { return now }))

	session := app.NewQuizSession("s-1", memory.NewStaticQuizLoader(nil), nil)
	session.Load(ctx, "QUIZ-1")
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	now = now.Add(6 * time.Minute)
	if evicted := store.Sweep(); len(evicted) != 1 {
		t.Fatalf("expected idle session evicted, got %v", evicted)
	}
	if _, ok := store.Get(ctx, "s-1"); ok {
		t.Fatalf("evicted session must not be returned")
	}
}

func TestContextStoreUsesFixedKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewContextStore(newClient(mr), time.Hour)

	sc := app.SessionContext{
		Student:   &domain.Student{ID: "s1", Name: "Alice Johnson"},
		Classroom: &domain.Classroom{ID: "c1", Name: "Math 101", TeacherName: "Mr. Smith"},
	}
	if err := store.Save(ctx, "v-1", sc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("context:v-1", app.KeySelectedStudent); got == "" {
		t.Fatalf("expected %s field", app.KeySelectedStudent)
	}

	back, err := store.Load(ctx, "v-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.Student.Name != "Alice Johnson" || back.Classroom.TeacherName != "Mr. Smith" || back.Quiz != nil {
		t.Fatalf("unexpected context %+v", back)
	}

	// Saving a context without a classroom drops the stale field.
	if err := store.Save(ctx, "v-1", app.SessionContext{Student: sc.Student}); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, _ = store.Load(ctx, "v-1")
	if back.Classroom != nil {
		t.Fatalf("expected classroom cleared, got %+v", back.Classroom)
	}

	empty, err := store.Load(ctx, "unknown")
	if err != nil || empty.Student != nil {
		t.Fatalf("expected empty context, got %+v err=%v", empty, err)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"quizmaster/internal/api"
	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/memory"
	"quizmaster/internal/notify"
)

// localTransport lets tests inject envelopes into a notify.Feed.
type localTransport struct {
	mu  sync.Mutex
	sub notify.Subscriber
}

func (t *localTransport) Subscribe(_ context.Context, _ string, sub notify.Subscriber) (func() error, error) {
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	if sub.OnStatus != nil {
		sub.OnStatus(true, nil)
	}
	return func() error { return nil }, nil
}

func (t *localTransport) push(tb testing.TB, event domain.SubmissionEvent) {
	tb.Helper()
	raw, err := notify.Encode("quiz-events", "student-submitted", event)
	if err != nil {
		tb.Fatalf("encode: %v", err)
	}
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()
	sub.OnMessage(raw)
}

type testEnv struct {
	server    *httptest.Server
	backend   *httptest.Server
	transport *localTransport
}

// newTestEnv starts a BFF in front of backendHandler. A nil handler gives an
// unreachable backend so every read falls back to sample data.
func newTestEnv(t *testing.T, backendHandler http.Handler) *testEnv {
	t.Helper()
	env := &testEnv{transport: &localTransport{}}

	var baseURL string
	if backendHandler != nil {
		env.backend = httptest.NewServer(backendHandler)
		t.Cleanup(env.backend.Close)
		baseURL = env.backend.URL
	} else {
		dead := httptest.NewServer(http.NotFoundHandler())
		baseURL = dead.URL
		dead.Close()
	}

	client := api.NewClient(baseURL)
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewQuizRepository(client, 0),
		client,
		memory.NewContextStore(),
		app.WithSessionOptions(app.WithAutoAdvance(0)),
	)
	feed := notify.NewFeed(env.transport, "quiz-events", "student-submitted")
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("start feed: %v", err)
	}
	t.Cleanup(func() { _ = feed.Stop() })

	env.server = httptest.NewServer(NewServer(client, service, feed, zap.NewNop(), nil).Routes())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, e.server.URL+path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()
}

func TestReadsFallBackToSampleData(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/students", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["usingSampleData"] != true || body["notice"] == "" {
		t.Fatalf("expected sample data notice, got %v", body)
	}
	if students, _ := body["data"].([]any); len(students) != 5 {
		t.Fatalf("expected 5 sample students, got %v", body["data"])
	}
}

func TestClassroomNotFoundIs404(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	resp, body := env.do(t, http.MethodGet, "/api/classrooms/nope/students", nil)
	if resp.StatusCode != http.StatusNotFound || body["error"] == "" {
		t.Fatalf("expected 404 with message, got %d %v", resp.StatusCode, body)
	}
}

func TestWriteErrorsSurface(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/enroll") {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"disk full"}`))
	}))

	resp, _ := env.do(t, http.MethodPost, "/api/classrooms/c1/students/enroll", map[string]string{"studentId": "s1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate enrollment, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodPost, "/api/classrooms", map[string]string{"name": "Math", "teacher_name": "Ms. Lee"})
	if resp.StatusCode != http.StatusBadGateway || body["error"] != "disk full" {
		t.Fatalf("expected 502 with server message, got %d %v", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/classrooms", map[string]string{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid classroom, got %d", resp.StatusCode)
	}
}

func TestSessionFlowOnSampleQuiz(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, view := env.do(t, http.MethodPost, "/api/sessions", startRequest{VisitorID: "v1", PublicID: "QUIZ-123456"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: %d %v", resp.StatusCode, view)
	}
	id, _ := view["id"].(string)
	if view["usingSampleData"] != true || id == "" {
		t.Fatalf("expected sample session, got %v", view)
	}

	for _, pick := range []answerRequest{
		{QuestionID: "q1", SelectedAnswer: "Paris"},
		{QuestionID: "q2", SelectedAnswer: "Mars"},
		{QuestionID: "q3", SelectedAnswer: "4"},
		{QuestionID: "q4", SelectedAnswer: "William Shakespeare"},
	} {
		if resp, body := env.do(t, http.MethodPost, "/api/sessions/"+id+"/answers", pick); resp.StatusCode != http.StatusOK {
			t.Fatalf("answer %v: %d %v", pick, resp.StatusCode, body)
		}
	}

	resp, body := env.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 without a student, got %d %v", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPut, "/api/context/v1", map[string]any{
		app.KeySelectedStudent: map[string]string{"id": "s1", "name": "Alice Johnson"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put context: %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %v", resp.StatusCode, body)
	}
	result, _ := body["result"].(map[string]any)
	if result["score"] != float64(4) || result["percentage"] != float64(100) {
		t.Fatalf("expected 4/4/100, got %v", result)
	}

	resp, body = env.do(t, http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	if resp.StatusCode != http.StatusOK || body["state"] != string(domain.StateSubmitted) || body["answeredCount"] != float64(4) {
		t.Fatalf("unexpected summary %d %v", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/api/sessions/"+id+"/answers", answerRequest{QuestionID: "q1", SelectedAnswer: "London"})
	if resp.StatusCode != http.StatusConflict || body["session"] == nil {
		t.Fatalf("expected 409 with session after submit, got %d %v", resp.StatusCode, body)
	}
}

func TestSessionNavigation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, view := env.do(t, http.MethodPost, "/api/sessions", startRequest{VisitorID: "v1", PublicID: "QUIZ-789012"})
	id := view["id"].(string)

	_, view = env.do(t, http.MethodPost, "/api/sessions/"+id+"/cursor", cursorRequest{Delta: 10})
	if view["cursor"] != float64(3) {
		t.Fatalf("expected clamp to 3, got %v", view["cursor"])
	}
	resp, _ := env.do(t, http.MethodPost, "/api/sessions/"+id+"/jump", jumpRequest{Index: 9})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range jump, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close: %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 summary after close, got %d", resp.StatusCode)
	}
}

func TestFeedSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	env.transport.push(t, domain.SubmissionEvent{ID: "e1", QuizID: "q1", StudentName: "Alice"})

	_, body := env.do(t, http.MethodGet, "/api/feed", nil)
	events, _ := body["events"].([]any)
	if body["connected"] != true || len(events) != 1 {
		t.Fatalf("unexpected feed %v", body)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrAlreadySubmitted, http.StatusConflict},
		{domain.ErrMissingStudentContext, http.StatusPreconditionFailed},
		{&domain.ValidationError{Field: "title", Message: "x"}, http.StatusBadRequest},
		{&domain.APIError{Status: 500, Message: "boom"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

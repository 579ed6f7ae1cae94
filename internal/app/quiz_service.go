package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizmaster/internal/domain"
)

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis, etc).
// Touch records activity on a session after it changed.
type SessionRepository interface {
	Put(ctx context.Context, session *QuizSession) error
	Get(ctx context.Context, id string) (*QuizSession, bool)
	Touch(ctx context.Context, session *QuizSession) error
	Delete(ctx context.Context, id string)
}

// SummaryReader is implemented by repositories that can describe sessions
// held by other instances.
type SummaryReader interface {
	Summary(ctx context.Context, id string) (SessionSummary, error)
}

// Publisher announces finished submissions on the real-time channel.
type Publisher interface {
	Publish(ctx context.Context, event domain.SubmissionEvent) error
}

// QuizService wires quiz sessions to the backend, the visitor's context and
// the notification channel.
type QuizService struct {
	sessions    SessionRepository
	quizzes     QuizLoader
	submitter   Submitter
	contexts    ContextStore
	publisher   Publisher
	log         *zap.Logger
	sessionOpts []SessionOption
	newID       func() string
	now         func() time.Time
}

type ServiceOption func(*QuizService)

func WithPublisher(p Publisher) ServiceOption {
	return func(s *QuizService) { s.publisher = p }
}

func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *QuizService) { s.log = log }
}

// WithSessionOptions applies opts to every session the service creates.
func WithSessionOptions(opts ...SessionOption) ServiceOption {
	return func(s *QuizService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithIDs replaces uuid generation for session and event ids.
func WithIDs(newID func() string) ServiceOption {
	return func(s *QuizService) { s.newID = newID }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(sessions SessionRepository, quizzes QuizLoader, submitter Submitter, contexts ContextStore, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		quizzes:   quizzes,
		submitter: submitter,
		contexts:  contexts,
		log:       zap.NewNop(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a session on the quiz with the given public code and records
// the quiz as the visitor's current selection.
func (s *QuizService) Start(ctx context.Context, visitorID, publicID string) (SessionView, error) {
	if publicID == "" {
		return SessionView{}, &domain.ValidationError{Field: "publicId", Message: "Please enter a quiz code."}
	}
	opts := append([]SessionOption{ForVisitor(visitorID)}, s.sessionOpts...)
	session := NewQuizSession(s.newID(), s.quizzes, s.submitter, opts...)
	view := session.Load(ctx, publicID)
	if view.UsingSampleData {
		s.log.Warn("quiz session running on sample data",
			zap.String("session", session.ID()), zap.String("public_id", publicID), zap.String("notice", view.Notice))
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		session.Close()
		return SessionView{}, err
	}

	if visitorID != "" {
		quiz := view.Quiz
		if _, err := s.UpdateContext(ctx, visitorID, SessionContext{Quiz: &quiz}); err != nil {
			s.log.Warn("record selected quiz", zap.String("visitor", visitorID), zap.Error(err))
		}
	}
	s.log.Info("quiz session started", zap.String("session", session.ID()), zap.String("quiz", view.Quiz.ID))
	return view, nil
}

// Session returns a live session by id.
func (s *QuizService) Session(ctx context.Context, id string) (*QuizSession, error) {
	session, ok := s.sessions.Get(ctx, id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) View(ctx context.Context, id string) (SessionView, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return session.View(), nil
}

// Summary describes a session, falling back to the shared record when the
// session lives on another instance.
func (s *QuizService) Summary(ctx context.Context, id string) (SessionSummary, error) {
	if session, ok := s.sessions.Get(ctx, id); ok {
		return session.View().Summary(), nil
	}
	if reader, ok := s.sessions.(SummaryReader); ok {
		return reader.Summary(ctx, id)
	}
	return SessionSummary{}, domain.ErrSessionNotFound
}

func (s *QuizService) SelectAnswer(ctx context.Context, id, questionID, option string) (SessionView, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	view, err := session.SelectAnswer(questionID, option)
	if err == nil {
		s.touch(ctx, session)
	}
	return view, err
}

func (s *QuizService) MoveCursor(ctx context.Context, id string, delta int) (SessionView, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	view := session.MoveCursor(delta)
	s.touch(ctx, session)
	return view, nil
}

func (s *QuizService) JumpTo(ctx context.Context, id string, index int) (SessionView, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	view, err := session.JumpTo(index)
	if err == nil {
		s.touch(ctx, session)
	}
	return view, err
}

func (s *QuizService) touch(ctx context.Context, session *QuizSession) {
	if err := s.sessions.Touch(ctx, session); err != nil {
		s.log.Warn("record session activity", zap.String("session", session.ID()), zap.Error(err))
	}
}

// Submit grades the session for the student in the visitor's context and
// announces the submission when it succeeds.
func (s *QuizService) Submit(ctx context.Context, id string) (SessionView, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}

	var student *domain.Student
	if visitor := session.VisitorID(); visitor != "" {
		sc, err := s.contexts.Load(ctx, visitor)
		if err != nil {
			s.log.Warn("load session context", zap.String("visitor", visitor), zap.Error(err))
		}
		student = sc.Student
	}

	result, err := session.Submit(ctx, student)
	view := session.View()
	s.touch(ctx, session)
	if err != nil {
		s.log.Info("quiz submission rejected", zap.String("session", id), zap.Error(err))
		return view, err
	}

	s.log.Info("quiz submitted",
		zap.String("session", id),
		zap.String("student", student.ID),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
		zap.Bool("sample", view.UsingSampleData))
	// Sample sessions are graded here and never reach the backend.
	if !view.UsingSampleData {
		s.announce(ctx, view, student, result)
	}
	return view, nil
}

func (s *QuizService) announce(ctx context.Context, view SessionView, student *domain.Student, result domain.SubmissionResult) {
	if s.publisher == nil {
		return
	}
	score, total, pct := result.Score, result.TotalQuestions, result.Percentage
	event := domain.SubmissionEvent{
		ID:             s.newID(),
		QuizID:         view.Quiz.ID,
		QuizTitle:      view.Quiz.Title,
		StudentID:      student.ID,
		StudentName:    student.Name,
		Timestamp:      s.now(),
		Score:          &score,
		TotalQuestions: &total,
		Percentage:     &pct,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish submission event", zap.String("quiz", event.QuizID), zap.Error(err))
	}
}

// Close ends a session and frees its timers and subscribers.
func (s *QuizService) Close(ctx context.Context, id string) {
	session, ok := s.sessions.Get(ctx, id)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(ctx, id)
}

// Context returns the visitor's current selections.
func (s *QuizService) Context(ctx context.Context, visitorID string) (SessionContext, error) {
	return s.contexts.Load(ctx, visitorID)
}

// UpdateContext merges patch into the visitor's selections and stores the result.
func (s *QuizService) UpdateContext(ctx context.Context, visitorID string, patch SessionContext) (SessionContext, error) {
	current, err := s.contexts.Load(ctx, visitorID)
	if err != nil {
		return SessionContext{}, err
	}
	merged := current.Merge(patch)
	if err := s.contexts.Save(ctx, visitorID, merged); err != nil {
		return SessionContext{}, err
	}
	return merged, nil
}

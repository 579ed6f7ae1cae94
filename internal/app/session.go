package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizmaster/internal/domain"
	"quizmaster/internal/sample"
)

// DefaultAutoAdvance is the pause between answering and moving to the next question.
const DefaultAutoAdvance = 500 * time.Millisecond

// QuizLoader fetches quiz content by its public code.
type QuizLoader interface {
	GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error)
}

// Submitter sends a completed answer set to the backend.
type Submitter interface {
	SubmitQuiz(ctx context.Context, quizID, studentID string, answers []domain.Answer) (domain.SubmissionResult, error)
}

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// SessionOption configures a QuizSession.
type SessionOption func(*QuizSession)

// WithAutoAdvance sets the auto-advance delay. Zero advances immediately.
func WithAutoAdvance(d time.Duration) SessionOption {
	return func(s *QuizSession) { s.delay = d }
}

// WithTimer replaces time.AfterFunc, mostly for tests.
func WithTimer(after AfterFunc) SessionOption {
	return func(s *QuizSession) { s.afterFunc = after }
}

// WithSessionClock replaces time.Now for the session's timestamps.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *QuizSession) { s.now = now }
}

// ForVisitor ties the session to the visitor whose context supplies the student.
func ForVisitor(visitorID string) SessionOption {
	return func(s *QuizSession) { s.visitorID = visitorID }
}

// QuizSession is one student's pass through one quiz.
type QuizSession struct {
	id        string
	visitorID string
	loader    QuizLoader
	submitter Submitter
	delay     time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	createdAt time.Time

	mu          sync.Mutex
	state       domain.SessionState
	bundle      domain.QuizBundle
	usingSample bool
	notice      string
	cursor      int
	answers     map[string]string
	result      *domain.SubmissionResult
	submitErr   string
	stopAdvance func() bool
	advanceSeq  uint64
	subscribers map[chan SessionView]struct{}
}

func NewQuizSession(id string, loader QuizLoader, submitter Submitter, opts ...SessionOption) *QuizSession {
	s := &QuizSession{
		id:          id,
		loader:      loader,
		submitter:   submitter,
		delay:       DefaultAutoAdvance,
		afterFunc:   realAfterFunc,
		now:         time.Now,
		state:       domain.StateLoading,
		answers:     make(map[string]string),
		subscribers: make(map[chan SessionView]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	return s
}

func (s *QuizSession) ID() string        { return s.id }
func (s *QuizSession) VisitorID() string { return s.visitorID }

// Load fetches the quiz and moves the session to Ready. Any failure,
// including an unknown code, substitutes the sample quiz and records the
// cause as a notice.
func (s *QuizSession) Load(ctx context.Context, publicID string) SessionView {
	bundle, err := s.loader.GetQuizByPublicID(ctx, publicID)
	usingSample := false
	notice := ""
	if err != nil {
		bundle = sample.QuizBundle(publicID, s.now())
		usingSample = true
		notice = loadNotice(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	s.bundle = bundle
	s.usingSample = usingSample
	s.notice = notice
	s.cursor = 0
	s.answers = make(map[string]string)
	s.result = nil
	s.submitErr = ""
	s.state = domain.StateReady
	return s.broadcastLocked()
}

func loadNotice(err error) string {
	if errors.Is(err, domain.ErrQuizNotFound) {
		return "Quiz not found. Showing a sample quiz instead."
	}
	return "Could not reach the quiz server. Showing a sample quiz instead."
}

// SelectAnswer records or overwrites the answer for a question and, unless
// the cursor is on the last question, schedules a move to the next one.
func (s *QuizSession) SelectAnswer(questionID, option string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return s.viewLocked(), err
	}
	idx := s.indexLocked(questionID)
	if idx < 0 {
		return s.viewLocked(), domain.ErrQuestionNotFound
	}
	if !s.bundle.Questions[idx].Options.Contains(option) {
		return s.viewLocked(), domain.ErrOptionNotFound
	}

	s.answers[questionID] = option
	s.cancelAdvanceLocked()
	if s.cursor < len(s.bundle.Questions)-1 {
		s.scheduleAdvanceLocked(s.cursor)
	}
	return s.broadcastLocked(), nil
}

// MoveCursor shifts the cursor by delta, clamped to the question range.
func (s *QuizSession) MoveCursor(delta int) SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	s.cursor = clamp(s.cursor+delta, 0, len(s.bundle.Questions)-1)
	return s.broadcastLocked()
}

// JumpTo moves the cursor directly to index.
func (s *QuizSession) JumpTo(index int) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.bundle.Questions) {
		return s.viewLocked(), domain.ErrIndexOutOfRange
	}
	s.cancelAdvanceLocked()
	s.cursor = index
	return s.broadcastLocked(), nil
}

// AllAnswered reports whether every question has a non-empty answer.
func (s *QuizSession) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allAnsweredLocked()
}

// Submit sends the answers for student. Sessions running on the sample quiz
// are graded locally and never reach the backend.
func (s *QuizSession) Submit(ctx context.Context, student *domain.Student) (domain.SubmissionResult, error) {
	s.mu.Lock()
	switch s.state {
	case domain.StateSubmitted:
		s.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrSessionClosed
	case domain.StateAlreadySubmitted:
		s.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrAlreadySubmitted
	case domain.StateSubmitting:
		s.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrSubmitInProgress
	}
	if !s.allAnsweredLocked() {
		s.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrIncompleteAnswers
	}
	if student == nil || student.ID == "" {
		s.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrMissingStudentContext
	}

	s.cancelAdvanceLocked()
	s.state = domain.StateSubmitting
	s.submitErr = ""
	quiz := s.bundle.Quiz
	questions := s.bundle.Questions
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	usingSample := s.usingSample
	s.broadcastLocked()
	s.mu.Unlock()

	var (
		result domain.SubmissionResult
		err    error
	)
	if usingSample {
		result = gradeSample(questions, answers)
	} else {
		result, err = submitAnswers(ctx, s.submitter, quiz.ID, student.ID, questions, answers)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.state = domain.StateSubmitted
		s.result = &result
	case errors.Is(err, domain.ErrAlreadySubmitted):
		s.state = domain.StateAlreadySubmitted
	default:
		s.state = domain.StateSubmitError
		s.submitErr = SubmitMessage(err)
	}
	s.broadcastLocked()
	return result, err
}

// View returns a snapshot of the session.
func (s *QuizSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// State returns the current lifecycle state.
func (s *QuizSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels any pending advance and disconnects subscribers.
func (s *QuizSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribers reports how many snapshot channels are open.
func (s *QuizSession) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Subscribe returns a channel of session snapshots, starting with the
// current one. The caller must invoke cancel to release it.
func (s *QuizSession) Subscribe() (<-chan SessionView, func()) {
	ch := make(chan SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.viewLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *QuizSession) mutableLocked() error {
	switch {
	case s.state == domain.StateLoading:
		return domain.ErrQuestionNotFound
	case s.state.Terminal():
		return domain.ErrSessionClosed
	case s.state == domain.StateSubmitting:
		return domain.ErrSubmitInProgress
	}
	return nil
}

func (s *QuizSession) indexLocked(questionID string) int {
	for i, q := range s.bundle.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

func (s *QuizSession) allAnsweredLocked() bool {
	if len(s.bundle.Questions) == 0 {
		return false
	}
	for _, q := range s.bundle.Questions {
		if s.answers[q.ID] == "" {
			return false
		}
	}
	return true
}

// scheduleAdvanceLocked moves the cursor from `from` to from+1 after the
// delay, provided nothing else touched the cursor in between.
func (s *QuizSession) scheduleAdvanceLocked(from int) {
	if s.delay <= 0 {
		s.cursor = from + 1
		return
	}
	seq := s.advanceSeq
	s.stopAdvance = s.afterFunc(s.delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.advanceSeq || s.cursor != from || s.state.Terminal() {
			return
		}
		s.stopAdvance = nil
		s.cursor = from + 1
		s.broadcastLocked()
	})
}

// cancelAdvanceLocked invalidates any pending advance. A callback that
// already fired and is waiting on the lock sees the bumped sequence and exits.
func (s *QuizSession) cancelAdvanceLocked() {
	s.advanceSeq++
	if s.stopAdvance != nil {
		s.stopAdvance()
		s.stopAdvance = nil
	}
}

func (s *QuizSession) broadcastLocked() SessionView {
	view := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale snapshot so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

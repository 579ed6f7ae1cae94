package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizmaster/internal/api"
	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/metrics"
	"quizmaster/internal/notify"
)

// Backend is the subset of the quiz backend client the server proxies.
type Backend interface {
	GetStudents(ctx context.Context) api.Fetched[[]domain.Student]
	GetStudentsWithClassrooms(ctx context.Context) api.Fetched[[]domain.StudentWithClassrooms]
	GetQuizzes(ctx context.Context) api.Fetched[[]domain.Quiz]
	GetClassrooms(ctx context.Context) api.Fetched[[]domain.Classroom]
	GetClassroomStudents(ctx context.Context, classroomID string) (api.Fetched[[]domain.ClassroomStudent], error)
	GetQuizQuestions(ctx context.Context, quizID string) api.Fetched[[]domain.Question]
	GetQuizResults(ctx context.Context, quizID string) api.Fetched[[]domain.QuizResult]
	GetQuizStats(ctx context.Context, quizID string) api.Fetched[domain.QuizStats]

	CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (api.CreatedQuiz, error)
	CreateClassroom(ctx context.Context, classroom domain.NewClassroom) (domain.Classroom, error)
	EnrollStudent(ctx context.Context, classroomID, studentID string) error
	CreateStudent(ctx context.Context, name string) (domain.Student, error)
	BulkCreateStudents(ctx context.Context, names []string) (int, error)
	DeleteStudent(ctx context.Context, studentID string) error
}

// Feed is the live activity feed the server streams to dashboards.
type Feed interface {
	Events() []notify.Notification
	Connected() bool
	Err() string
	Listen() (<-chan notify.Notification, func())
}

// Server exposes the quiz flows over HTTP and websockets.
type Server struct {
	backend  Backend
	quizzes  *app.QuizService
	feed     Feed
	log      *zap.Logger
	origins  []string
	upgrader websocket.Upgrader
}

func NewServer(backend Backend, quizzes *app.QuizService, feed Feed, log *zap.Logger, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		backend: backend,
		quizzes: quizzes,
		feed:    feed,
		log:     log,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(metrics.Middleware(routePattern))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Timeout(30*time.Second)).Group(func(r chi.Router) {
			r.Get("/students", s.listStudents)
			r.Get("/students/with-classrooms", s.listStudentsWithClassrooms)
			r.Post("/students", s.createStudent)
			r.Post("/students/bulk", s.bulkCreateStudents)
			r.Delete("/students/{studentID}", s.deleteStudent)

			r.Get("/classrooms", s.listClassrooms)
			r.Post("/classrooms", s.createClassroom)
			r.Get("/classrooms/{classroomID}/students", s.listClassroomStudents)
			r.Post("/classrooms/{classroomID}/students/enroll", s.enrollStudent)

			r.Get("/quizzes", s.listQuizzes)
			r.Post("/quizzes", s.createQuiz)
			r.Get("/quiz/{quizID}/questions", s.listQuestions)
			r.Get("/quiz/{quizID}/results", s.listResults)
			r.Get("/quiz/{quizID}/stats", s.quizStats)

			r.Get("/context/{visitorID}", s.getContext)
			r.Put("/context/{visitorID}", s.putContext)

			r.Post("/sessions", s.startSession)
			r.Get("/sessions/{sessionID}", s.getSession)
			r.Get("/sessions/{sessionID}/summary", s.getSessionSummary)
			r.Delete("/sessions/{sessionID}", s.closeSession)
			r.Post("/sessions/{sessionID}/answers", s.selectAnswer)
			r.Post("/sessions/{sessionID}/cursor", s.moveCursor)
			r.Post("/sessions/{sessionID}/jump", s.jump)
			r.Post("/sessions/{sessionID}/submit", s.submit)
		})
		r.Get("/feed", s.getFeed)
	})

	r.Get("/ws/feed", s.serveFeedWS)
	r.Get("/ws/sessions/{sessionID}", s.serveSessionWS)
	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/postgres"
	pgmigrations "quizmaster/internal/infra/postgres/migrations"
	infraredis "quizmaster/internal/infra/redis"
)

type gradingSubmitter struct {
	key map[string]string
}

func (g gradingSubmitter) SubmitQuiz(_ context.Context, _, _ string, answers []domain.Answer) (domain.SubmissionResult, error) {
	score := 0
	for _, a := range answers {
		if g.key[a.QuestionID] == a.SelectedAnswer {
			score++
		}
	}
	return domain.SubmissionResult{
		SubmissionID:   "sub-1",
		Score:          score,
		TotalQuestions: len(answers),
		Percentage:     domain.Percentage(score, len(answers)),
	}, nil
}

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewQuizStore(pool)
	if err := store.SaveQuiz(ctx, sampleBundle()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	contexts := postgres.NewContextStore(pool)
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewQuizRepository(redisClient, store, 5*time.Minute),
		gradingSubmitter{key: map[string]string{"q1": "4", "q2": "Mars"}},
		contexts,
		app.WithSessionOptions(app.WithAutoAdvance(0)),
	)

	student := &domain.Student{ID: "s1", Name: "Alice Johnson"}
	if _, err := service.UpdateContext(ctx, "visitor-1", app.SessionContext{Student: student}); err != nil {
		t.Fatalf("update context: %v", err)
	}

	view, err := service.Start(ctx, "visitor-1", "QUIZ-INT001")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.UsingSampleData || view.Quiz.Title != "Arithmetic" || len(view.Questions) != 2 {
		t.Fatalf("expected stored quiz, got %+v", view)
	}

	if _, err := service.SelectAnswer(ctx, view.ID, "q1", "4"); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if _, err := service.SelectAnswer(ctx, view.ID, "q2", "Venus"); err != nil {
		t.Fatalf("answer q2: %v", err)
	}

	submitted, err := service.Submit(ctx, view.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.State != domain.StateSubmitted || submitted.Result.Score != 1 || submitted.Result.Percentage != 50 {
		t.Fatalf("unexpected submission view %+v", submitted)
	}

	sc, err := contexts.Load(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("load context: %v", err)
	}
	if sc.Student == nil || sc.Student.ID != "s1" || sc.Quiz == nil || sc.Quiz.PublicID != "QUIZ-INT001" {
		t.Fatalf("expected student and quiz selections, got %+v", sc)
	}
}

func TestQuizStoreUnknownCode(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	if _, err := postgres.NewQuizStore(pool).GetQuizByPublicID(ctx, "QUIZ-NOPE"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	sc, err := postgres.NewContextStore(pool).Load(ctx, "nobody")
	if err != nil || sc.Student != nil {
		t.Fatalf("expected empty context, got %+v err=%v", sc, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleBundle() domain.QuizBundle {
	return domain.QuizBundle{
		Quiz: domain.Quiz{ID: "quiz-int", Title: "Arithmetic", PublicID: "QUIZ-INT001"},
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: domain.Options{"3", "4", "5"}},
			{ID: "q2", Text: "Which planet is red?", Options: domain.Options{"Venus", "Mars"}},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

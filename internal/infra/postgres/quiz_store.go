package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizmaster/internal/domain"
)

// QuizStore keeps a local library of quiz bundles as JSONB, keyed by public code.
// It serves quiz content when the service runs with quiz.source=postgres.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE public_id=$1`, publicID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizBundle{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizBundle{}, fmt.Errorf("load quiz: %w", err)
	}
	var bundle domain.QuizBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return domain.QuizBundle{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return bundle, nil
}

// SaveQuiz inserts or replaces a bundle.
func (s *QuizStore) SaveQuiz(ctx context.Context, bundle domain.QuizBundle) error {
	if bundle.Quiz.PublicID == "" {
		return &domain.ValidationError{Field: "publicId", Message: "quiz has no public code"}
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (public_id, data) VALUES ($1, $2)
		ON CONFLICT (public_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		bundle.Quiz.PublicID, raw)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizmaster/internal/app"
)

// ContextStore persists visitor selections as one JSONB document per visitor.
// The document uses the selectedStudent/selectedClassroom/selectedQuiz keys.
type ContextStore struct {
	pool *pgxpool.Pool
}

func NewContextStore(pool *pgxpool.Pool) *ContextStore {
	return &ContextStore{pool: pool}
}

func (s *ContextStore) Load(ctx context.Context, visitorID string) (app.SessionContext, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM session_contexts WHERE visitor_id=$1`, visitorID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return app.SessionContext{}, nil
	}
	if err != nil {
		return app.SessionContext{}, fmt.Errorf("load session context: %w", err)
	}
	var sc app.SessionContext
	if err := json.Unmarshal(raw, &sc); err != nil {
		return app.SessionContext{}, fmt.Errorf("unmarshal session context: %w", err)
	}
	return sc, nil
}

func (s *ContextStore) Save(ctx context.Context, visitorID string, sc app.SessionContext) error {
	raw, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_contexts (visitor_id, data) VALUES ($1, $2)
		ON CONFLICT (visitor_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		visitorID, raw)
	if err != nil {
		return fmt.Errorf("save session context: %w", err)
	}
	return nil
}

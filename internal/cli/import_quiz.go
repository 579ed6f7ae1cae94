package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizmaster/internal/api"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/postgres"
)

type quizBackend interface {
	CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (api.CreatedQuiz, error)
	GetQuizByPublicID(ctx context.Context, publicID string) (domain.QuizBundle, error)
}

type quizSaver interface {
	SaveQuiz(ctx context.Context, bundle domain.QuizBundle) error
}

type quizInvalidator interface {
	Invalidate(ctx context.Context, publicID string) error
}

// NewImportQuizCmd creates a quiz from a JSON file through the backend and
// optionally mirrors it into the local Postgres quiz store.
func NewImportQuizCmd(configPath *string) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "import-quiz <file>",
		Short: "Create a quiz from a JSON definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiz, err := readNewQuiz(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			var (
				store quizSaver
				cache quizInvalidator
			)
			if local {
				if d.pool == nil {
					return fmt.Errorf("--local needs postgres.url")
				}
				store = postgres.NewQuizStore(d.pool)
				if shared := d.sharedQuizCache(d.client); shared != nil {
					cache = shared
				}
			}

			created, err := importQuiz(cmd.Context(), d.client, store, cache, quiz)
			if err != nil {
				return err
			}
			d.log.Info("quiz created",
				zap.String("id", created.ID),
				zap.String("public_id", created.PublicID),
				zap.Bool("mirrored", store != nil))
			fmt.Fprintln(cmd.OutOrStdout(), created.PublicID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "also store the created quiz in the Postgres quiz store")
	return cmd
}

func readNewQuiz(path string) (domain.NewQuiz, error) {
	var quiz domain.NewQuiz
	raw, err := os.ReadFile(path)
	if err != nil {
		return quiz, fmt.Errorf("read quiz file: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return quiz, fmt.Errorf("parse quiz file: %w", err)
	}
	if err := quiz.Validate(); err != nil {
		return quiz, err
	}
	return quiz, nil
}

// importQuiz creates quiz on the backend. With a store it saves the
// backend's own copy, so quizzes served from Postgres carry the ids the
// backend grades against, then drops any shared cache entry for the code.
func importQuiz(ctx context.Context, backend quizBackend, store quizSaver, cache quizInvalidator, quiz domain.NewQuiz) (api.CreatedQuiz, error) {
	created, err := backend.CreateQuiz(ctx, quiz)
	if err != nil {
		return api.CreatedQuiz{}, err
	}
	if store == nil {
		return created, nil
	}

	bundle, err := backend.GetQuizByPublicID(ctx, created.PublicID)
	if err != nil {
		return created, fmt.Errorf("fetch created quiz %s: %w", created.PublicID, err)
	}
	if err := store.SaveQuiz(ctx, bundle); err != nil {
		return created, fmt.Errorf("store quiz %s: %w", created.PublicID, err)
	}
	if cache != nil {
		if err := cache.Invalidate(ctx, created.PublicID); err != nil {
			return created, fmt.Errorf("invalidate cached quiz %s: %w", created.PublicID, err)
		}
	}
	return created, nil
}

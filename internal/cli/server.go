package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizmaster/internal/app"
	"quizmaster/internal/config"
	transport "quizmaster/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	log := d.log

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	publisher, err := d.publisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	feed, err := d.feed()
	if err != nil {
		return err
	}
	if err := feed.Start(ctx); err != nil {
		// The service works without live updates; the feed reports the error.
		log.Warn("real-time feed unavailable", zap.Error(err))
	}
	defer feed.Stop()

	sessions := d.sessionStore()
	service := app.NewQuizService(
		sessions,
		d.quizLoader(),
		d.client,
		d.contextStore(),
		app.WithPublisher(publisher),
		app.WithServiceLogger(log.Named("quiz")),
		app.WithSessionOptions(app.WithAutoAdvance(config.TTLDuration(cfg.Quiz.AutoAdvance, app.DefaultAutoAdvance))),
	)
	srv := transport.NewServer(d.client, service, feed, log.Named("http"), cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket streams are long-lived
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		log.Info("starting quiz service", zap.String("addr", server.Addr), zap.String("backend", cfg.API.BaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

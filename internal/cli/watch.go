package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWatchCmd tails the submission channel and logs every notification.
func NewWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Log live quiz submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			d, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			feed, err := d.feed()
			if err != nil {
				return err
			}
			updates, cancel := feed.Listen()
			defer cancel()
			if err := feed.Start(ctx); err != nil {
				return err
			}
			defer feed.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case n, ok := <-updates:
					if !ok {
						return nil
					}
					d.log.Info("submission",
						zap.String("student", n.Data.StudentName),
						zap.String("quiz", n.Data.QuizTitle),
						zap.String("color", n.Color),
						zap.Time("at", n.ReceivedAt))
				}
			}
		},
	}
}

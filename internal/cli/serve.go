package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ingest/internal/pipeline"
	"github.com/JonMunkholm/ingest/internal/web"
)

func serveCmd() *cobra.Command {
	var maxRuns int

	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the status server with health, metrics and a run trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			slog.Info("configuration loaded", "config", cfg.String())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, cfg.Ingest.Entities, cfg.Ingest.UploadRaw)
			if err != nil {
				return err
			}
			defer d.Close()

			opts := web.Options{
				Runner:     d.runner,
				Limiter:    pipeline.NewRunLimiter(maxRuns, pipeline.DefaultMaxWaitTime),
				Metrics:    d.metrics.Handler(),
				RunTimeout: cfg.Ingest.Timeout,
			}
			if d.ledger != nil {
				opts.History = d.ledger
			}
			server := web.NewServer(cfg.Server, opts)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				return err
			}
			return nil
		},
	}

	c.Flags().IntVar(&maxRuns, "max-runs", pipeline.DefaultMaxConcurrentRuns, "Concurrent runs for different dates")
	return c
}

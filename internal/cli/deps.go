package cli

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/ledger"
	"github.com/JonMunkholm/ingest/internal/metrics"
	"github.com/JonMunkholm/ingest/internal/pipeline"
	"github.com/JonMunkholm/ingest/internal/publish"
	"github.com/JonMunkholm/ingest/internal/source"
	"github.com/JonMunkholm/ingest/internal/storage"
)

// deps is the wired object graph shared by run and serve.
type deps struct {
	store   storage.Store
	metrics *metrics.Collector
	ledger  *ledger.Queries // nil when DATABASE_URL is unset
	runner  *pipeline.Runner

	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps opens the object store and, when configured, the run ledger.
func buildDeps(ctx context.Context, cfg *config.Config, entities []string, uploadRaw bool) (*deps, error) {
	d := &deps{metrics: metrics.New()}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	d.store = store
	d.closers = append(d.closers, func() {
		if err := storage.Close(store); err != nil {
			slog.Warn("failed to close object store", "error", err)
		}
	})

	opts := pipeline.Options{
		MaxParallel: cfg.Ingest.MaxParallel,
		UploadRaw:   uploadRaw,
		RawPrefix:   cfg.Ingest.RawPrefix,
		Entities:    entities,
		Metrics:     d.metrics,
	}

	if cfg.Database.LedgerEnabled() {
		pool, err := ledger.Connect(ctx, cfg.Database)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)

		d.ledger = ledger.New(pool)
		if err := d.ledger.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, err
		}
		opts.Ledger = d.ledger
		slog.Info("run ledger enabled")
	}

	d.runner = pipeline.New(source.NewFileSource(cfg.Ingest.DataDir), publish.New(store), opts)
	slog.Info("dependencies ready",
		"backend", cfg.Storage.Backend,
		"bucket", cfg.Storage.Bucket,
		"data_dir", cfg.Ingest.DataDir,
	)
	return d, nil
}

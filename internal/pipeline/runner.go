// Package pipeline drives one ingestion run: for every entity, load the raw
// batch, partition it into cleaned and quarantined rows, publish both
// artifacts and report the outcome.
//
// Entities are independent. They run in parallel up to MaxParallel, and a
// fatal error in one entity never stops the others. Nothing is retried; a
// failed entity is recovered by running the same date again, which skips
// every artifact that was already published.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/ledger"
	"github.com/JonMunkholm/ingest/internal/logging"
	"github.com/JonMunkholm/ingest/internal/metrics"
	"github.com/JonMunkholm/ingest/internal/publish"
	"github.com/JonMunkholm/ingest/internal/source"
	"github.com/JonMunkholm/ingest/internal/summary"
)

// DefaultMaxParallel is the entity parallelism when Options.MaxParallel is unset.
const DefaultMaxParallel = 5

// Recorder stores entity outcomes. Satisfied by *ledger.Queries.
type Recorder interface {
	RecordRun(ctx context.Context, r ledger.Run) error
}

// Options configures a Runner.
type Options struct {
	MaxParallel int      // Entities processed at once
	UploadRaw   bool     // Copy raw files to the store before validating
	RawPrefix   string   // Key prefix for raw copies
	Entities    []string // Subset to run; empty runs every registered entity

	Metrics *metrics.Collector // Optional
	Ledger  Recorder           // Optional
}

// Runner executes ingestion runs.
type Runner struct {
	source    source.Source
	publisher *publish.Publisher
	opts      Options
}

// New creates a Runner reading from src and publishing through pub.
func New(src source.Source, pub *publish.Publisher, opts Options) *Runner {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	return &Runner{source: src, publisher: pub, opts: opts}
}

// Entities resolves the schemas a run will process, in run order.
func (r *Runner) Entities() ([]core.EntitySchema, error) {
	if len(r.opts.Entities) == 0 {
		return core.All(), nil
	}

	schemas := make([]core.EntitySchema, 0, len(r.opts.Entities))
	for _, name := range r.opts.Entities {
		schema, err := core.Lookup(name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	sort.SliceStable(schemas, func(i, j int) bool {
		return schemas[i].Position < schemas[j].Position
	})
	return schemas, nil
}

// Run processes every entity for runDate.
//
// The returned summary holds every entity that completed. The error joins
// the FatalErrors of entities that aborted; it is nil when all succeeded.
func (r *Runner) Run(ctx context.Context, runDate core.Date) (summary.RunSummary, error) {
	schemas, err := r.Entities()
	if err != nil {
		return summary.Build(runDate, nil), err
	}

	runID := uuid.New()
	ctx = logging.WithRunID(ctx, runID.String())
	log := logging.FromContext(ctx)
	log.Info("run started", "run_date", runDate.String(), "entities", len(schemas))
	start := time.Now()

	var (
		mu       sync.Mutex
		results  []summary.EntitySummary
		failures []error
	)

	g := new(errgroup.Group)
	g.SetLimit(r.opts.MaxParallel)
	for _, schema := range schemas {
		g.Go(func() error {
			es, err := r.runEntity(ctx, runID, schema, runDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return nil
			}
			results = append(results, es)
			return nil
		})
	}
	_ = g.Wait()

	runErr := errors.Join(failures...)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveRun(runErr != nil)
	}

	sum := summary.Build(runDate, results)
	total, valid, invalid := sum.Totals()
	log.Info("run finished",
		"run_date", runDate.String(),
		"succeeded", len(results),
		"failed", len(failures),
		"total", total,
		"valid", valid,
		"invalid", invalid,
		"duration", time.Since(start).String(),
	)
	return sum, runErr
}

// runEntity runs the sequential steps for one entity.
func (r *Runner) runEntity(ctx context.Context, runID uuid.UUID, schema core.EntitySchema, runDate core.Date) (summary.EntitySummary, error) {
	entity := schema.Name
	log := logging.WithFields(ctx, "entity", entity)
	start := time.Now()

	es, err := r.process(ctx, schema, runDate)

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveEntity(entity, start)
		if err != nil {
			code, _ := core.CodeOf(err)
			r.opts.Metrics.ObserveFailure(entity, string(code))
		}
	}
	r.record(ctx, runID, runDate, es, err, start)

	if err != nil {
		log.Error("entity failed", "error", err)
		return es, err
	}
	log.Info("entity finished",
		"total", es.Total,
		"valid", es.Valid,
		"invalid", es.Invalid,
		"duration", time.Since(start).String(),
	)
	return es, nil
}

func (r *Runner) process(ctx context.Context, schema core.EntitySchema, runDate core.Date) (summary.EntitySummary, error) {
	entity := schema.Name
	es := summary.EntitySummary{Entity: entity}

	if r.opts.UploadRaw {
		if raw, ok := r.source.(source.RawReader); ok {
			data, err := raw.ReadRaw(ctx, entity, runDate)
			if err != nil {
				return es, asFatal(err, core.CodeSourceRead, entity, "upload raw")
			}
			res, err := r.publisher.PublishRaw(ctx, r.opts.RawPrefix, entity, runDate, data)
			if err != nil {
				return es, err
			}
			r.observePublish("raw", res)
			es.RawLocator = res.Locator
		}
	}

	batch, err := r.source.Load(ctx, entity, runDate)
	if err != nil {
		return es, asFatal(err, core.CodeSourceRead, entity, "load")
	}

	part := core.Partition(schema, batch)
	es.Total = part.Total()
	es.Valid = len(part.Cleaned)
	es.Invalid = len(part.Invalid)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveRows(entity, es.Valid, es.Invalid)
	}

	validated, quarantine, err := r.publisher.PublishPartition(ctx, entity, runDate, part)
	if err != nil {
		return es, asFatal(err, core.CodeStorage, entity, "publish")
	}
	r.observePublish(string(publish.KindValidated), validated)
	r.observePublish(string(publish.KindQuarantine), quarantine)

	es.ValidatedLocator = validated.Locator
	es.QuarantineLocator = quarantine.Locator
	es.ValidatedSkipped = validated.Skipped
	es.QuarantineSkipped = quarantine.Skipped
	return es, nil
}

func (r *Runner) observePublish(kind string, res publish.Result) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObservePublish(kind, res.Skipped, res.Bytes)
	}
}

// record writes the entity outcome to the ledger. Ledger failures are logged
// and never fail the entity.
func (r *Runner) record(ctx context.Context, runID uuid.UUID, runDate core.Date, es summary.EntitySummary, runErr error, start time.Time) {
	if r.opts.Ledger == nil {
		return
	}

	run := ledger.Run{
		RunID:             runID,
		RunDate:           runDate,
		Entity:            es.Entity,
		Status:            ledger.StatusSucceeded,
		Total:             es.Total,
		Valid:             es.Valid,
		Invalid:           es.Invalid,
		ValidatedLocator:  es.ValidatedLocator,
		QuarantineLocator: es.QuarantineLocator,
		RawLocator:        es.RawLocator,
		StartedAt:         start,
		FinishedAt:        time.Now(),
	}
	if runErr != nil {
		run.Status = ledger.StatusFailed
		run.Error = runErr.Error()
	}

	if err := r.opts.Ledger.RecordRun(ctx, run); err != nil {
		logging.WithFields(ctx, "entity", es.Entity).Warn("failed to record run", "error", err)
	}
}

// asFatal keeps FatalErrors as they are and wraps anything else with code.
func asFatal(err error, code core.ErrorCode, entity, op string) error {
	var fe *core.FatalError
	if errors.As(err, &fe) {
		return err
	}
	return core.NewFatalError(code, entity, op, err)
}

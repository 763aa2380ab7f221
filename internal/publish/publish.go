// Package publish writes validated and quarantine artifacts to an object store.
//
// Publishing is idempotent by existence: when an object is already stored at
// the target key it is left untouched and its locator is returned. A rerun of
// the same run date therefore never rewrites an artifact. Content is not
// compared, so a truncated object from a crashed run is kept as is.
package publish

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/logging"
	"github.com/JonMunkholm/ingest/internal/storage"
)

// Result describes one publish call.
type Result struct {
	Key     string
	Locator string
	Rows    int  // Rows in the row-set
	Bytes   int  // Encoded size; 0 when skipped
	Skipped bool // An object already existed at Key
}

// Publisher publishes encoded row-sets to a Store.
type Publisher struct {
	store storage.Store
}

// New creates a Publisher writing to store.
func New(store storage.Store) *Publisher {
	return &Publisher{store: store}
}

// Store returns the underlying object store.
func (p *Publisher) Store() storage.Store {
	return p.store
}

// Publish stores data at the target's key unless an object is already there.
// At most one write is issued. Storage failures are FatalErrors with CodeStorage.
func (p *Publisher) Publish(ctx context.Context, target Target, data []byte, rows int) (Result, error) {
	return p.put(ctx, target.Entity, target.Key(), data, rows)
}

// PublishValidated encodes and publishes the cleaned rows of an entity.
func (p *Publisher) PublishValidated(ctx context.Context, entity string, runDate core.Date, records []core.NormalizedRecord) (Result, error) {
	data, err := EncodeValidated(records)
	if err != nil {
		return Result{}, fmt.Errorf("encode validated %s: %w", entity, err)
	}
	return p.Publish(ctx, Target{Kind: KindValidated, Entity: entity, RunDate: runDate}, data, len(records))
}

// PublishQuarantine encodes and publishes the rejected rows of an entity.
func (p *Publisher) PublishQuarantine(ctx context.Context, entity string, runDate core.Date, rejected []core.Rejected) (Result, error) {
	data, err := EncodeQuarantine(rejected)
	if err != nil {
		return Result{}, fmt.Errorf("encode quarantine %s: %w", entity, err)
	}
	return p.Publish(ctx, Target{Kind: KindQuarantine, Entity: entity, RunDate: runDate}, data, len(rejected))
}

// PublishPartition publishes both datasets of a partition, validated first.
// Both artifacts are always published, even when a side is empty.
func (p *Publisher) PublishPartition(ctx context.Context, entity string, runDate core.Date, part core.PartitionResult) (validated, quarantine Result, err error) {
	validated, err = p.PublishValidated(ctx, entity, runDate, part.Cleaned)
	if err != nil {
		return validated, quarantine, err
	}
	quarantine, err = p.PublishQuarantine(ctx, entity, runDate, part.Invalid)
	return validated, quarantine, err
}

// PublishRaw copies an unmodified raw file under prefix, skip-if-exists.
func (p *Publisher) PublishRaw(ctx context.Context, prefix, entity string, runDate core.Date, data []byte) (Result, error) {
	return p.put(ctx, entity, RawKey(prefix, entity, runDate), data, -1)
}

func (p *Publisher) put(ctx context.Context, entity, key string, data []byte, rows int) (Result, error) {
	log := logging.WithFields(ctx, "entity", entity, "key", key)
	res := Result{Key: key, Locator: p.store.Locator(key), Rows: rows}

	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return Result{}, core.NewFatalError(core.CodeStorage, entity, "publish", fmt.Errorf("check %s: %w", key, err))
	}
	if exists {
		res.Skipped = true
		log.Info("artifact exists, skipping upload", "locator", res.Locator)
		return res, nil
	}

	if err := p.store.Write(ctx, key, data); err != nil {
		return Result{}, core.NewFatalError(core.CodeStorage, entity, "publish", fmt.Errorf("write %s: %w", key, err))
	}
	res.Bytes = len(data)
	log.Info("artifact uploaded", "locator", res.Locator, "bytes", res.Bytes)
	return res, nil
}

// Package ledger records ingestion runs in PostgreSQL.
//
// One row is kept per (run_date, entity). A rerun replaces the row, so the
// ledger always shows the latest outcome of each entity for a day while the
// object store keeps the first published artifacts.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one entity's outcome within an ingestion run.
type Run struct {
	RunID             uuid.UUID `json:"runId"`
	RunDate           core.Date `json:"runDate"`
	Entity            string    `json:"entity"`
	Status            string    `json:"status"`
	Total             int       `json:"total"`
	Valid             int       `json:"valid"`
	Invalid           int       `json:"invalid"`
	ValidatedLocator  string    `json:"validatedLocator,omitempty"`
	QuarantineLocator string    `json:"quarantineLocator,omitempty"`
	RawLocator        string    `json:"rawLocator,omitempty"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
}

const createTable = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
	run_date           DATE        NOT NULL,
	entity             TEXT        NOT NULL,
	run_id             UUID        NOT NULL,
	status             TEXT        NOT NULL,
	total              INTEGER     NOT NULL DEFAULT 0,
	valid              INTEGER     NOT NULL DEFAULT 0,
	invalid            INTEGER     NOT NULL DEFAULT 0,
	validated_locator  TEXT        NOT NULL DEFAULT '',
	quarantine_locator TEXT        NOT NULL DEFAULT '',
	raw_locator        TEXT        NOT NULL DEFAULT '',
	error              TEXT        NOT NULL DEFAULT '',
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_date, entity)
)`

const upsertRun = `
INSERT INTO ingestion_runs (
	run_date, entity, run_id, status, total, valid, invalid,
	validated_locator, quarantine_locator, raw_locator, error,
	started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (run_date, entity) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	status = EXCLUDED.status,
	total = EXCLUDED.total,
	valid = EXCLUDED.valid,
	invalid = EXCLUDED.invalid,
	validated_locator = EXCLUDED.validated_locator,
	quarantine_locator = EXCLUDED.quarantine_locator,
	raw_locator = EXCLUDED.raw_locator,
	error = EXCLUDED.error,
	started_at = EXCLUDED.started_at,
	finished_at = EXCLUDED.finished_at`

const selectColumns = `
SELECT run_date, entity, run_id, status, total, valid, invalid,
	validated_locator, quarantine_locator, raw_locator, error,
	started_at, finished_at
FROM ingestion_runs`

const listRecent = selectColumns + `
ORDER BY finished_at DESC, entity
LIMIT $1`

const forDate = selectColumns + `
WHERE run_date = $1
ORDER BY entity`

// Queries runs ledger statements against a DBTX.
type Queries struct {
	db DBTX
}

// New creates Queries over db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// EnsureSchema creates the ingestion_runs table if it does not exist.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create ingestion_runs: %w", err)
	}
	return nil
}

// RecordRun inserts or replaces the row for the run's date and entity.
func (q *Queries) RecordRun(ctx context.Context, r Run) error {
	_, err := q.db.Exec(ctx, upsertRun,
		pgDate(r.RunDate),
		r.Entity,
		pgtype.UUID{Bytes: r.RunID, Valid: true},
		r.Status,
		int32(r.Total),
		int32(r.Valid),
		int32(r.Invalid),
		r.ValidatedLocator,
		r.QuarantineLocator,
		r.RawLocator,
		r.Error,
		r.StartedAt,
		r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record run %s %s: %w", r.RunDate, r.Entity, err)
	}
	return nil
}

// ListRecent returns up to limit rows, most recently finished first.
func (q *Queries) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(ctx, listRecent, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collectRuns(rows)
}

// ForDate returns every entity row recorded for runDate, ordered by entity.
func (q *Queries) ForDate(ctx context.Context, runDate core.Date) ([]Run, error) {
	rows, err := q.db.Query(ctx, forDate, pgDate(runDate))
	if err != nil {
		return nil, fmt.Errorf("runs for %s: %w", runDate, err)
	}
	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]Run, error) {
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                     Run
			runDate               pgtype.Date
			runID                 pgtype.UUID
			total, valid, invalid int32
		)
		if err := rows.Scan(
			&runDate, &r.Entity, &runID, &r.Status, &total, &valid, &invalid,
			&r.ValidatedLocator, &r.QuarantineLocator, &r.RawLocator, &r.Error,
			&r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.RunDate = core.DateOf(runDate.Time)
		r.RunID = runID.Bytes
		r.Total, r.Valid, r.Invalid = int(total), int(valid), int(invalid)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func pgDate(d core.Date) pgtype.Date {
	return pgtype.Date{Time: time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// Connect opens a pool from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

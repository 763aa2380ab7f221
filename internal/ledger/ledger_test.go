package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
)

var runDate = core.Date{Year: 2024, Month: time.January, Day: 1}

// ============================================================================
// Fakes
// ============================================================================

type execCall struct {
	sql  string
	args []interface{}
}

type fakeDB struct {
	execs    []execCall
	queries  []execCall
	rows     [][]any
	execErr  error
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	panic("not used")
}

type fakeRows struct {
	rows   [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func sampleRun() Run {
	return Run{
		RunID:             uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		RunDate:           runDate,
		Entity:            "orders",
		Status:            StatusSucceeded,
		Total:             10,
		Valid:             8,
		Invalid:           2,
		ValidatedLocator:  "file://lake/validated_raw/orders/orders_2024-01-01_validated.csv",
		QuarantineLocator: "file://lake/quarantine_raw/orders/orders_2024-01-01_quarantine.csv",
		StartedAt:         time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		FinishedAt:        time.Date(2024, 1, 2, 3, 0, 5, 0, time.UTC),
	}
}

func rowFor(r Run) []any {
	return []any{
		pgDate(r.RunDate), r.Entity, pgtype.UUID{Bytes: r.RunID, Valid: true}, r.Status,
		int32(r.Total), int32(r.Valid), int32(r.Invalid),
		r.ValidatedLocator, r.QuarantineLocator, r.RawLocator, r.Error,
		r.StartedAt, r.FinishedAt,
	}
}

// ============================================================================
// Queries
// ============================================================================

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS ingestion_runs")
	assert.Contains(t, db.execs[0].sql, "PRIMARY KEY (run_date, entity)")
}

func TestRecordRun(t *testing.T) {
	db := &fakeDB{}
	run := sampleRun()

	require.NoError(t, New(db).RecordRun(context.Background(), run))
	require.Len(t, db.execs, 1)

	call := db.execs[0]
	assert.Contains(t, call.sql, "ON CONFLICT (run_date, entity) DO UPDATE")
	require.Len(t, call.args, 13)
	assert.Equal(t, pgDate(runDate), call.args[0])
	assert.Equal(t, "orders", call.args[1])
	assert.Equal(t, pgtype.UUID{Bytes: run.RunID, Valid: true}, call.args[2])
	assert.Equal(t, int32(8), call.args[5])
}

func TestRecordRun_Error(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset by peer")}
	err := New(db).RecordRun(context.Background(), sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run 2024-01-01 orders")
	assert.Equal(t, "DB001", core.MapError(err).Code)
}

func TestListRecent(t *testing.T) {
	run := sampleRun()
	failed := sampleRun()
	failed.Entity = "payments"
	failed.Status = StatusFailed
	failed.Error = "source file missing"

	db := &fakeDB{rows: [][]any{rowFor(run), rowFor(failed)}}
	runs, err := New(db).ListRecent(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, run, runs[0])
	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, []interface{}{int32(50)}, db.queries[0].args, "non-positive limit uses default")
}

func TestForDate(t *testing.T) {
	db := &fakeDB{rows: [][]any{rowFor(sampleRun())}}
	runs, err := New(db).ForDate(context.Background(), runDate)
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.Equal(t, runDate, runs[0].RunDate)
	assert.True(t, strings.Contains(db.queries[0].sql, "WHERE run_date = $1"))
}

func TestForDate_QueryError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("boom")}
	_, err := New(db).ForDate(context.Background(), runDate)
	assert.Error(t, err)
}

// ============================================================================
// Integration
// ============================================================================

// TestLedger_Postgres runs against a real database when LEDGER_TEST_DATABASE_URL is set.
func TestLedger_Postgres(t *testing.T) {
	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, config.DatabaseConfig{URL: url, MaxConns: 2, MaxConnLifetime: time.Minute, MaxConnIdleTime: time.Minute})
	require.NoError(t, err)
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	q := New(tx)
	require.NoError(t, q.EnsureSchema(ctx))

	run := sampleRun()
	require.NoError(t, q.RecordRun(ctx, run))
	run.Valid = 9
	require.NoError(t, q.RecordRun(ctx, run))

	runs, err := q.ForDate(ctx, runDate)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 9, runs[0].Valid)
}

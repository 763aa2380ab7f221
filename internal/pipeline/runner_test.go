package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ingest/internal/core"
	_ "github.com/JonMunkholm/ingest/internal/core/entities"
	"github.com/JonMunkholm/ingest/internal/ledger"
	"github.com/JonMunkholm/ingest/internal/metrics"
	"github.com/JonMunkholm/ingest/internal/publish"
	"github.com/JonMunkholm/ingest/internal/source"
	"github.com/JonMunkholm/ingest/internal/storage"
)

var dayFiles = map[string]string{
	"customers": "customer_id,first_name,last_name,email,country,signup_date\n" +
		"1,John,Doe,john@example.com,US,2024-01-01\n" +
		"2,Jane,Roe,bad-email,US,2024-01-01\n",
	"products": "product_id,name,category,price,stock_count,created_at,is_active\n" +
		"P1,Coffee Mug,Kitchen,12.5,10,2024-01-01T08:00:00,true\n",
	"orders": "order_id,customer_id,order_date,status,total_amount,shipping_cost,shipping_country,campaign\n" +
		"O1,1,2024-01-01 10:00:00,shipped,25.00,5,US,\n" +
		"O2,1,2024-01-01 11:00:00,lost,25.00,5,US,\n",
	"order_items": "order_item_id,order_id,product_id,quantity,unit_price,line_total\n" +
		"I1,O1,P1,3,10.0,30.0\n" +
		"I2,O1,P1,0,10.0,0\n" +
		"I3,O1,P1,ten,10.0,30.0\n",
	"payments": "payment_id,order_id,amount,payment_method,paid_at\n" +
		"PY1,O1,19.99,card,2024-01-01T12:00:00Z\n" +
		"PY2,O1,free,card,2024-01-01T12:00:00Z\n",
}

func writeDay(t *testing.T, root string, skip ...string) {
	t.Helper()
	dir := filepath.Join(root, day1.String())
	require.NoError(t, os.MkdirAll(dir, 0o755))

	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for entity, body := range dayFiles {
		if skipped[entity] {
			continue
		}
		path := filepath.Join(dir, source.FileName(entity, day1))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

// countingStore wraps a Store and counts writes.
type countingStore struct {
	storage.Store
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Write(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.Store.Write(ctx, key, data)
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type memLedger struct {
	mu   sync.Mutex
	runs []ledger.Run
}

func (l *memLedger) RecordRun(_ context.Context, r ledger.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, r)
	return nil
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)
	return &countingStore{Store: local}
}

func TestRunner_Run(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root)
	store := newStore(t)
	coll := metrics.New()
	led := &memLedger{}

	runner := New(source.NewFileSource(root), publish.New(store), Options{
		MaxParallel: 2,
		Metrics:     coll,
		Ledger:      led,
	})

	sum, err := runner.Run(context.Background(), day1)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", sum.RunDate)
	assert.Len(t, sum.Entities, 5)
	for name, es := range sum.Entities {
		assert.Equal(t, es.Total, es.Valid+es.Invalid, name)
	}

	customers := sum.Entities["customers"]
	assert.Equal(t, 2, customers.Total)
	assert.Equal(t, 1, customers.Valid)
	assert.Equal(t, 1, customers.Invalid)
	assert.Equal(t, "file://lake/validated_raw/customers/customers_2024-01-01_validated.csv", sum.Validated["customers"])
	assert.Equal(t, "file://lake/quarantine_raw/customers/customers_2024-01-01_quarantine.csv", sum.Quarantine["customers"])

	items := sum.Entities["order_items"]
	assert.Equal(t, 1, items.Valid)
	assert.Equal(t, 2, items.Invalid)

	assert.Equal(t, 0, sum.Entities["products"].Invalid)
	assert.Empty(t, sum.Raw, "raw upload disabled")

	assert.Equal(t, 10, store.Writes(), "two artifacts per entity")
	assert.Len(t, led.runs, 5)
	assert.Equal(t, 1.0, testutil.ToFloat64(coll.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(coll.RowsTotal.WithLabelValues("order_items", "invalid")))

	data, err := store.Read(context.Background(), "validated_raw/order_items/order_items_2024-01-01_validated.csv")
	require.NoError(t, err)
	assert.Equal(t, "order_item_id,order_id,product_id,quantity,unit_price,line_total\nI1,O1,P1,3,10,30\n", string(data))
}

func TestRunner_RerunSkipsPublishedArtifacts(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root)
	store := newStore(t)
	runner := New(source.NewFileSource(root), publish.New(store), Options{UploadRaw: true, RawPrefix: "raw/ecommerce"})

	first, err := runner.Run(context.Background(), day1)
	require.NoError(t, err)
	writes := store.Writes()
	assert.Equal(t, 15, writes, "raw, validated and quarantine per entity")

	second, err := runner.Run(context.Background(), day1)
	require.NoError(t, err)

	assert.Equal(t, writes, store.Writes(), "rerun must not write")
	assert.Equal(t, first.Validated, second.Validated)
	assert.Equal(t, first.Quarantine, second.Quarantine)
	assert.Equal(t, first.Raw, second.Raw)
	assert.True(t, second.Entities["orders"].ValidatedSkipped)
	assert.Equal(t, "file://lake/raw/ecommerce/2024-01-01/orders_2024-01-01.csv", second.Raw["orders"])
}

func TestRunner_MissingSourceAbortsOnlyThatEntity(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root, "payments")
	led := &memLedger{}
	runner := New(source.NewFileSource(root), publish.New(newStore(t)), Options{UploadRaw: true, Ledger: led})

	sum, err := runner.Run(context.Background(), day1)
	require.Error(t, err)

	assert.True(t, errors.Is(err, core.ErrSourceMissing))
	assert.Len(t, sum.Entities, 4)
	assert.NotContains(t, sum.Entities, "payments")

	var failed []ledger.Run
	for _, r := range led.runs {
		if r.Status == ledger.StatusFailed {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "payments", failed[0].Entity)
	assert.NotEmpty(t, failed[0].Error)
}

func TestRunner_EntitySubset(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root)
	runner := New(source.NewFileSource(root), publish.New(newStore(t)), Options{Entities: []string{"payments", "customers"}})

	schemas, err := runner.Entities()
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "customers", schemas[0].Name, "subset runs in registry order")

	sum, err := runner.Run(context.Background(), day1)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "payments"}, sum.Names())
}

func TestRunner_UnknownEntity(t *testing.T) {
	runner := New(source.NewFileSource(t.TempDir()), publish.New(newStore(t)), Options{Entities: []string{"refunds"}})

	_, err := runner.Run(context.Background(), day1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownEntity))
}

// failingStore fails every existence check.
type failingStore struct{ storage.Store }

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestRunner_StorageFailure(t *testing.T) {
	root := t.TempDir()
	writeDay(t, root)
	runner := New(source.NewFileSource(root), publish.New(failingStore{newStore(t)}), Options{})

	sum, err := runner.Run(context.Background(), day1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorage))
	assert.Empty(t, sum.Entities)
	assert.Equal(t, "RUN004", core.MapError(err).Code)
}

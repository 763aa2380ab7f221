package publish

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/storage"
)

var runDate = core.Date{Year: 2024, Month: time.January, Day: 1}

// countingStore is an in-memory Store that counts calls.
type countingStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
	failOn  string // Operation that returns an error: "exists" or "write"
}

func newCountingStore() *countingStore {
	return &countingStore{objects: make(map[string][]byte)}
}

func (s *countingStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "exists" {
		return false, errors.New("connection refused")
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *countingStore) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "write" {
		return errors.New("503 slow down")
	}
	s.writes++
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *countingStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *countingStore) Locator(key string) string {
	return storage.Locator("mem", "lake", key)
}

func record(fields ...core.Field) core.NormalizedRecord {
	return core.NormalizedRecord{Fields: fields}
}

func TestTarget_Key(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{
			target: Target{Kind: KindValidated, Entity: "orders", RunDate: runDate},
			want:   "validated_raw/orders/orders_2024-01-01_validated.csv",
		},
		{
			target: Target{Kind: KindQuarantine, Entity: "order_items", RunDate: runDate},
			want:   "quarantine_raw/order_items/order_items_2024-01-01_quarantine.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Key())
			assert.Equal(t, tt.target.Key(), tt.target.Key(), "key must be a pure function")
		})
	}
}

func TestTarget_KeysDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, kind := range Kinds {
		for _, entity := range []string{"customers", "orders"} {
			for _, day := range []int{1, 2} {
				key := Target{Kind: kind, Entity: entity, RunDate: core.Date{Year: 2024, Month: time.January, Day: day}}.Key()
				assert.False(t, seen[key], "duplicate key %s", key)
				seen[key] = true
			}
		}
	}
}

func TestRawKey(t *testing.T) {
	assert.Equal(t, "raw/ecommerce/2024-01-01/orders_2024-01-01.csv", RawKey("/raw/ecommerce/", "orders", runDate))
}

func TestEncodeValidated(t *testing.T) {
	records := []core.NormalizedRecord{
		record(
			core.Field{Name: "id", Value: "P1"},
			core.Field{Name: "price", Value: 10.0},
			core.Field{Name: "stock", Value: 3},
			core.Field{Name: "active", Value: true},
			core.Field{Name: "created", Value: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
			core.Field{Name: "since", Value: runDate},
		),
		record(
			core.Field{Name: "id", Value: "P2, deluxe"},
			core.Field{Name: "price", Value: 19.99},
			core.Field{Name: "stock", Value: 0},
			core.Field{Name: "active", Value: false},
			core.Field{Name: "created", Value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			core.Field{Name: "since", Value: nil},
		),
	}

	data, err := EncodeValidated(records)
	require.NoError(t, err)

	want := "id,price,stock,active,created,since\n" +
		"P1,10,3,true,2024-01-01T09:00:00Z,2024-01-01\n" +
		"\"P2, deluxe\",19.99,0,false,2024-01-02T00:00:00Z,\n"
	assert.Equal(t, want, string(data))
}

func TestEncodeValidated_Empty(t *testing.T) {
	data, err := EncodeValidated(nil)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestEncodeValidated_MismatchedRows(t *testing.T) {
	_, err := EncodeValidated([]core.NormalizedRecord{
		record(core.Field{Name: "a"}),
		record(core.Field{Name: "b"}),
	})
	assert.Error(t, err)
}

func TestEncodeQuarantine(t *testing.T) {
	rejected := []core.Rejected{
		{
			RowIndex: 1,
			RawData:  core.RawRecord{"payment_id": "PY1", "amount": "free", "paid_at": nil},
			Errors:   []core.FieldError{{Field: "amount", Message: "not a number", Input: "free"}},
		},
		{
			RowIndex: 4,
			RawData:  core.RawRecord{"amount": math.NaN()},
			Errors:   []core.FieldError{{Field: "amount", Message: "not a finite number", Input: math.NaN()}},
		},
	}

	data, err := EncodeQuarantine(rejected)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "row_index,raw_data,errors", lines[0])
	assert.Equal(t,
		`1,"{""amount"":""free"",""paid_at"":null,""payment_id"":""PY1""}","[{""field"":""amount"",""error"":""not a number"",""input"":""free""}]"`,
		lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `4,"{""amount"":""NaN""}"`), lines[2])
}

func TestEncodeQuarantine_JSONRoundTrip(t *testing.T) {
	data, err := EncodeQuarantine([]core.Rejected{{
		RowIndex: 0,
		RawData:  core.RawRecord{"email": "bad-email"},
		Errors:   []core.FieldError{{Field: "email", Message: "invalid email address", Input: "bad-email"}},
	}})
	require.NoError(t, err)

	// Column 2 of the data row holds JSON.
	row := strings.SplitN(strings.Split(string(data), "\n")[1], ",", 2)[1]
	raw := strings.SplitN(row, `","`, 2)[0]
	raw = strings.ReplaceAll(strings.TrimPrefix(raw, `"`), `""`, `"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "bad-email", decoded["email"])
}

func TestPublisher_WritesOnce(t *testing.T) {
	store := newCountingStore()
	pub := New(store)
	ctx := context.Background()
	target := Target{Kind: KindValidated, Entity: "orders", RunDate: runDate}

	first, err := pub.Publish(ctx, target, []byte("a\n1\n"), 1)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 4, first.Bytes)
	assert.Equal(t, 1, store.writes)

	second, err := pub.Publish(ctx, target, []byte("different content"), 1)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Locator, second.Locator)
	assert.Equal(t, 1, store.writes, "rerun must not write")

	data, err := store.Read(ctx, target.Key())
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data), "existing object must not be overwritten")
}

func TestPublisher_EmptyQuarantine(t *testing.T) {
	store := newCountingStore()
	pub := New(store)

	res, err := pub.PublishQuarantine(context.Background(), "customers", runDate, nil)
	require.NoError(t, err)

	assert.Equal(t, "mem://lake/quarantine_raw/customers/customers_2024-01-01_quarantine.csv", res.Locator)
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 1, store.writes)

	data, err := store.Read(context.Background(), res.Key)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPublisher_PublishPartition(t *testing.T) {
	store := newCountingStore()
	pub := New(store)

	part := core.PartitionResult{
		Cleaned: []core.NormalizedRecord{record(core.Field{Name: "id", Value: "1"})},
	}
	validated, quarantine, err := pub.PublishPartition(context.Background(), "customers", runDate, part)
	require.NoError(t, err)

	assert.Equal(t, "mem://lake/validated_raw/customers/customers_2024-01-01_validated.csv", validated.Locator)
	assert.Equal(t, "mem://lake/quarantine_raw/customers/customers_2024-01-01_quarantine.csv", quarantine.Locator)
	assert.Equal(t, 2, store.writes)
}

func TestPublisher_StorageFailure(t *testing.T) {
	for _, op := range []string{"exists", "write"} {
		t.Run(op, func(t *testing.T) {
			store := newCountingStore()
			store.failOn = op

			_, err := New(store).Publish(context.Background(), Target{Kind: KindValidated, Entity: "orders", RunDate: runDate}, nil, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrStorage)
		})
	}
}

func TestPublisher_Raw(t *testing.T) {
	store := newCountingStore()
	pub := New(store)

	res, err := pub.PublishRaw(context.Background(), "raw/ecommerce", "orders", runDate, []byte("order_id\n"))
	require.NoError(t, err)
	assert.Equal(t, "mem://lake/raw/ecommerce/2024-01-01/orders_2024-01-01.csv", res.Locator)

	res, err = pub.PublishRaw(context.Background(), "raw/ecommerce", "orders", runDate, []byte("order_id\n"))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, store.writes)
}

func TestPublisher_LocalStoreRerun(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)
	pub := New(store)

	part := core.PartitionResult{Invalid: []core.Rejected{{
		RowIndex: 0,
		RawData:  core.RawRecord{"id": nil},
		Errors:   []core.FieldError{{Field: "id", Message: "field required"}},
	}}}

	v1, q1, err := pub.PublishPartition(context.Background(), "products", runDate, part)
	require.NoError(t, err)
	v2, q2, err := pub.PublishPartition(context.Background(), "products", runDate, part)
	require.NoError(t, err)

	assert.Equal(t, v1.Locator, v2.Locator)
	assert.Equal(t, q1.Locator, q2.Locator)
	assert.True(t, v2.Skipped)
	assert.True(t, q2.Skipped)
	assert.Equal(t, "file://lake/validated_raw/products/products_2024-01-01_validated.csv", v1.Locator)
}

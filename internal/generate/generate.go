// Package generate produces synthetic day folders for local runs and demos.
//
// The data is deliberately dirty: a small share of rows carries the kind of
// defects seen in real exports (null or negative amounts, words where numbers
// belong, unknown enum values, dangling foreign keys) so every run exercises
// the quarantine path.
//
// All randomness comes from the seed passed to New. The same seed, counts
// and day always produce byte-identical files.
package generate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/source"
)

// Injection rates per entity.
const (
	customerBadRate  = 0.05
	productBadRate   = 0.05
	orderBadRate     = 0.05
	orderItemBadRate = 0.10
	paymentBadRate   = 0.10
	brokenFKRate     = 0.05
)

// Counts sets how many rows to generate. Order items are three per order and
// payments one per order.
type Counts struct {
	Customers int
	Products  int
	Orders    int
}

// DailyCounts is the volume of an incremental day.
var DailyCounts = Counts{Customers: 100, Products: 20, Orders: 300}

// Table is one generated entity file.
type Table struct {
	Entity string
	Header []string
	Rows   [][]any // nil cells are written empty
}

// Generator creates day datasets from explicit random state.
type Generator struct {
	rng    *rand.Rand
	counts Counts

	customerIDs []string
	productIDs  []string
	orderIDs    []string
	prices      map[string]float64
}

// New creates a Generator seeded with seed.
func New(seed uint64, counts Counts) *Generator {
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		counts: counts,
	}
}

// Generate builds every entity table for day, parents first.
func (g *Generator) Generate(day core.Date) []Table {
	return []Table{
		g.customers(day),
		g.products(day),
		g.orders(day),
		g.orderItems(day),
		g.payments(day),
	}
}

// WriteDay generates day and writes <dir>/<day>/<entity>_<day>.csv for every
// entity. Returns the written paths by entity.
func (g *Generator) WriteDay(dir string, day core.Date) (map[string]string, error) {
	folder := filepath.Join(dir, day.String())
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create day folder: %w", err)
	}

	paths := make(map[string]string)
	for _, t := range g.Generate(day) {
		data, err := t.CSV()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t.Entity, err)
		}
		path := filepath.Join(folder, source.FileName(t.Entity, day))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", t.Entity, err)
		}
		paths[t.Entity] = path
	}
	return paths, nil
}

// CSV encodes the table with a header row.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = cell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		if math.IsNaN(t) {
			return "NaN"
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// ============================================================================
// Entity tables
// ============================================================================

func (g *Generator) customers(day core.Date) Table {
	t := Table{
		Entity: "customers",
		Header: []string{"customer_id", "first_name", "last_name", "email", "country", "signup_date"},
	}
	g.customerIDs = g.customerIDs[:0]

	for range g.counts.Customers {
		id := g.uuid()
		first, last := pick(g.rng, firstNames), pick(g.rng, lastNames)
		row := []any{
			id,
			first,
			last,
			fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), g.rng.IntN(100), pick(g.rng, emailDomains)),
			pick(g.rng, countries),
			g.pastDate(day, 730).String(),
		}
		if g.hit(customerBadRate) {
			switch g.rng.IntN(3) {
			case 0:
				row[3] = nil
			case 1:
				row[3] = pick(g.rng, []any{"bad-email", "user@", "@example.com"})
			default:
				row[4] = pick(g.rng, []any{"", "UNKNOWN", nil})
			}
		}
		g.customerIDs = append(g.customerIDs, id)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (g *Generator) products(day core.Date) Table {
	t := Table{
		Entity: "products",
		Header: []string{"product_id", "name", "category", "price", "stock_count", "created_at", "is_active"},
	}
	g.productIDs = g.productIDs[:0]
	g.prices = make(map[string]float64, g.counts.Products)

	for range g.counts.Products {
		id := g.uuid()
		price := g.money(5, 500)
		row := []any{
			id,
			pick(g.rng, productAdjectives) + " " + pick(g.rng, productNouns),
			pick(g.rng, categories),
			price,
			g.rng.IntN(1001),
			g.pastTimestamp(day, 365),
			g.rng.IntN(2) == 0,
		}
		if g.hit(productBadRate) {
			if g.rng.IntN(2) == 0 {
				row[3] = pick(g.rng, []any{nil, -10, 0, "FREE"})
			} else {
				row[4] = pick(g.rng, []any{nil, -5, "??"})
			}
		}
		if p, ok := row[3].(float64); ok {
			g.prices[id] = p
		}
		g.productIDs = append(g.productIDs, id)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (g *Generator) orders(day core.Date) Table {
	t := Table{
		Entity: "orders",
		Header: []string{"order_id", "customer_id", "order_date", "status", "total_amount", "shipping_cost", "shipping_country", "campaign"},
	}
	g.orderIDs = g.orderIDs[:0]

	for range g.counts.Orders {
		id := g.uuid()
		row := []any{
			id,
			g.foreignKey(g.customerIDs),
			g.pastTimestamp(day, 730),
			pick(g.rng, orderStatuses),
			g.money(20, 800),
			g.money(0, 30),
			pick(g.rng, shippingCountries),
			pick(g.rng, campaigns),
		}
		if g.hit(orderBadRate) {
			switch g.rng.IntN(3) {
			case 0:
				row[4] = pick(g.rng, []any{nil, -10, 0, -50})
			case 1:
				row[3] = pick(g.rng, []any{"lost", "PENDING?", nil})
			default:
				row[6] = pick(g.rng, []any{nil, "unknown", "null"})
			}
		}
		g.orderIDs = append(g.orderIDs, id)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (g *Generator) orderItems(_ core.Date) Table {
	t := Table{
		Entity: "order_items",
		Header: []string{"order_item_id", "order_id", "product_id", "quantity", "unit_price", "line_total"},
	}

	for range g.counts.Orders * 3 {
		productID := g.foreignKey(g.productIDs)
		quantity := 1 + g.rng.IntN(5)

		var unitPrice, lineTotal any
		if p, ok := g.prices[productID]; ok && p > 0 {
			unitPrice = p
			lineTotal = math.Round(p*float64(quantity)*100) / 100
		} else {
			unitPrice = g.money(5, 200)
			lineTotal = pick(g.rng, []any{nil, -1, 0})
		}

		row := []any{g.uuid(), g.foreignKey(g.orderIDs), productID, quantity, unitPrice, lineTotal}
		if g.hit(orderItemBadRate) {
			switch g.rng.IntN(3) {
			case 0:
				row[3] = pick(g.rng, []any{0, -3, nil, "ten"})
			case 1:
				row[5] = pick(g.rng, []any{nil, -50, 0, 9999, math.NaN()})
			default:
				row[2] = g.uuid()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (g *Generator) payments(day core.Date) Table {
	t := Table{
		Entity: "payments",
		Header: []string{"payment_id", "order_id", "amount", "payment_method", "paid_at"},
	}

	for range g.counts.Orders {
		row := []any{
			g.uuid(),
			g.foreignKey(g.orderIDs),
			g.money(20, 800),
			pick(g.rng, paymentMethods),
			g.pastTimestamp(day, 730),
		}
		if g.hit(paymentBadRate) {
			if g.rng.IntN(2) == 0 {
				row[2] = pick(g.rng, []any{nil, -20, "free", 0})
			} else {
				row[3] = pick(g.rng, []any{"crypto", nil, "???"})
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ============================================================================
// Random helpers
// ============================================================================

func (g *Generator) hit(rate float64) bool {
	return g.rng.Float64() < rate
}

// uuid draws a version 4 UUID from the generator's random state.
func (g *Generator) uuid() string {
	id, err := uuid.NewRandomFromReader(rngReader{g.rng})
	if err != nil {
		panic(err) // rngReader never fails
	}
	return id.String()
}

// foreignKey returns an existing ID, or a dangling one at brokenFKRate.
func (g *Generator) foreignKey(ids []string) string {
	if len(ids) == 0 || g.hit(brokenFKRate) {
		return g.uuid()
	}
	return ids[g.rng.IntN(len(ids))]
}

func (g *Generator) money(lo, hi float64) float64 {
	return math.Round((lo+g.rng.Float64()*(hi-lo))*100) / 100
}

func (g *Generator) pastDate(day core.Date, maxDays int) core.Date {
	base := time.Date(day.Year, day.Month, day.Day, 0, 0, 0, 0, time.UTC)
	return core.DateOf(base.AddDate(0, 0, -g.rng.IntN(maxDays+1)))
}

func (g *Generator) pastTimestamp(day core.Date, maxDays int) string {
	base := time.Date(day.Year, day.Month, day.Day, 0, 0, 0, 0, time.UTC)
	offset := time.Duration(g.rng.Int64N(int64(maxDays) * int64(24*time.Hour)))
	return base.Add(-offset).Truncate(time.Second).Format("2006-01-02T15:04:05")
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.IntN(len(values))]
}

// rngReader adapts a *rand.Rand to io.Reader for uuid generation.
type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}

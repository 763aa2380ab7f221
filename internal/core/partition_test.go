package core

import (
	"fmt"
	"reflect"
	"testing"
)

func mixedBatch(n int) Batch {
	rows := make([]RawRecord, n)
	for i := range rows {
		switch i % 3 {
		case 0:
			rows[i] = RawRecord{"id": fmt.Sprintf("w%d", i), "price": "1.5", "status": "on"}
		case 1:
			rows[i] = RawRecord{"id": fmt.Sprintf("w%d", i), "price": "NaN", "status": "on"}
		default:
			rows[i] = RawRecord{"id": "", "price": 2, "status": "lost"}
		}
	}
	return Batch{Entity: "widgets", Rows: rows}
}

func TestPartition_CountingInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 10, 101} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			res := Partition(testSchema, mixedBatch(n))
			if res.Total() != n {
				t.Errorf("cleaned + invalid = %d, want %d", res.Total(), n)
			}
		})
	}
}

func TestPartition_RejectedRows(t *testing.T) {
	batch := mixedBatch(9)
	res := Partition(testSchema, batch)

	if len(res.Cleaned) != 3 || len(res.Invalid) != 6 {
		t.Fatalf("got %d cleaned, %d invalid; want 3, 6", len(res.Cleaned), len(res.Invalid))
	}

	prev := -1
	for _, rej := range res.Invalid {
		if rej.RowIndex <= prev {
			t.Errorf("row_index %d not in input order after %d", rej.RowIndex, prev)
		}
		prev = rej.RowIndex

		if len(rej.Errors) == 0 {
			t.Errorf("row %d rejected without errors", rej.RowIndex)
		}
		if !reflect.DeepEqual(rej.RawData, batch.Rows[rej.RowIndex]) {
			t.Errorf("row %d raw_data = %v, want %v", rej.RowIndex, rej.RawData, batch.Rows[rej.RowIndex])
		}
	}
}

func TestPartition_RawDataUntouched(t *testing.T) {
	row := RawRecord{"id": "  w1  ", "price": "free", "status": " ON "}
	res := Partition(testSchema, Batch{Rows: []RawRecord{row}})

	if len(res.Invalid) != 1 {
		t.Fatalf("invalid = %d, want 1", len(res.Invalid))
	}
	want := RawRecord{"id": "  w1  ", "price": "free", "status": " ON "}
	if !reflect.DeepEqual(res.Invalid[0].RawData, want) {
		t.Errorf("raw_data = %v, want %v", res.Invalid[0].RawData, want)
	}
}

func TestPartition_Deterministic(t *testing.T) {
	batch := mixedBatch(30)

	first := Partition(testSchema, batch)
	second := Partition(testSchema, batch)

	if !reflect.DeepEqual(first, second) {
		t.Error("Partition() is not deterministic for identical input")
	}
}

func TestPartition_CleanedOrder(t *testing.T) {
	res := Partition(testSchema, mixedBatch(9))

	var ids []any
	for _, rec := range res.Cleaned {
		id, _ := rec.Get("id")
		ids = append(ids, id)
	}
	want := []any{"w0", "w3", "w6"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("cleaned ids = %v, want %v", ids, want)
	}
}

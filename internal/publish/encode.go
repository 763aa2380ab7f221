package publish

// encode.go serializes row-sets as flat CSV.
//
// Validated rows are written from their normalized values; the header is the
// field names of the first row. Quarantined rows are written as
// row_index,raw_data,errors where the last two columns hold JSON text with
// sorted keys so reruns produce identical bytes.
//
// An empty row-set encodes to zero bytes.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/ingest/internal/core"
)

// QuarantineHeader is the header of every quarantine artifact.
var QuarantineHeader = []string{"row_index", "raw_data", "errors"}

// EncodeValidated writes normalized records as CSV.
func EncodeValidated(records []core.NormalizedRecord) ([]byte, error) {
	if len(records) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := records[0].Names()
	if err := w.Write(header); err != nil {
		return nil, err
	}

	row := make([]string, len(header))
	for i, rec := range records {
		if len(rec.Fields) != len(header) {
			return nil, fmt.Errorf("record %d has %d fields, header has %d", i, len(rec.Fields), len(header))
		}
		for j, f := range rec.Fields {
			if f.Name != header[j] {
				return nil, fmt.Errorf("record %d field %d is %q, header has %q", i, j, f.Name, header[j])
			}
			row[j] = core.FormatValue(f.Value)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeQuarantine writes rejected rows with their diagnostics as CSV.
func EncodeQuarantine(rejected []core.Rejected) ([]byte, error) {
	if len(rejected) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(QuarantineHeader); err != nil {
		return nil, err
	}

	for _, rej := range rejected {
		raw, err := json.Marshal(jsonRecord(rej.RawData))
		if err != nil {
			return nil, fmt.Errorf("row %d raw_data: %w", rej.RowIndex, err)
		}
		errs, err := json.Marshal(jsonErrors(rej.Errors))
		if err != nil {
			return nil, fmt.Errorf("row %d errors: %w", rej.RowIndex, err)
		}
		if err := w.Write([]string{strconv.Itoa(rej.RowIndex), string(raw), string(errs)}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jsonRecord copies a raw record with values JSON can represent.
func jsonRecord(raw core.RawRecord) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonErrors(errs []core.FieldError) []core.FieldError {
	out := make([]core.FieldError, len(errs))
	for i, fe := range errs {
		fe.Input = jsonValue(fe.Input)
		out[i] = fe
	}
	return out
}

// jsonValue renders non-finite floats as text; encoding/json rejects them.
func jsonValue(v any) any {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case float32:
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return strconv.FormatFloat(float64(f), 'f', -1, 32)
		}
	}
	return v
}

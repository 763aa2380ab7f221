package core

import (
	"time"
)

// FieldKind selects the normalization policy applied to a field.
type FieldKind int

const (
	KindIdentifier FieldKind = iota
	KindName
	KindEmail
	KindPrice
	KindCost
	KindCount
	KindEnum
	KindOptionalEnum
	KindFreeText
	KindDate
	KindTimestamp
	KindBool
)

// DefaultNullTokens are free-text values treated as missing (compared case-insensitively).
var DefaultNullTokens = []string{"", "unknown", "n/a", "null", "none", "--"}

// FieldRule is the declarative descriptor for one field of an entity.
type FieldRule struct {
	Name       string    // Field name as it appears in the raw record
	Kind       FieldKind // Normalization policy
	Required   bool      // Soft failures escalate to a record rejection
	Min        int       // Lower bound for KindCount
	Max        float64   // Exclusive upper bound for numeric kinds (0 = unbounded)
	Allowed    []string  // Valid values for KindEnum and KindOptionalEnum (lowercase)
	NullTokens []string  // Overrides DefaultNullTokens for KindFreeText
}

// EntitySchema is the ordered rule table for one entity.
type EntitySchema struct {
	Name     string // Storage name: "order_items"
	Label    string // Display name: "Order Items"
	Position int    // Run and display order
	Fields   []FieldRule
}

// FieldNames returns the schema's field names in declaration order.
func (s EntitySchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RawRecord maps field names to untyped raw values.
type RawRecord map[string]any

// ExtraFieldsKey holds the cells of a row that is wider than its header.
// A record carrying it is always rejected.
const ExtraFieldsKey = "_extra"

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a YYYY-MM-DD date.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Field is one normalized value in a NormalizedRecord.
type Field struct {
	Name  string
	Value any // nil, string, int, float64, bool, Date or time.Time
}

// NormalizedRecord is a validated row with typed values in schema order.
type NormalizedRecord struct {
	Fields []Field
}

// Get returns the value for name and whether the field exists.
func (r NormalizedRecord) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names of the record in order.
func (r NormalizedRecord) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldError describes one field-level violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
	Input   any    `json:"input"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ValidationOutcome is the classification of one raw row.
// A row is accepted when Errors is empty.
type ValidationOutcome struct {
	Record NormalizedRecord
	Errors []FieldError
}

// Accepted reports whether the row passed every rule.
func (o ValidationOutcome) Accepted() bool {
	return len(o.Errors) == 0
}

// Rejected is a quarantined row with its diagnostics.
type Rejected struct {
	RowIndex int          `json:"row_index"`
	RawData  RawRecord    `json:"raw_data"`
	Errors   []FieldError `json:"errors"`
}

// Batch is the ordered raw input for one entity and run date.
type Batch struct {
	Entity  string
	RunDate Date
	Rows    []RawRecord
}

// PartitionResult holds the cleaned and rejected rows of a batch, each in input order.
type PartitionResult struct {
	Cleaned []NormalizedRecord
	Invalid []Rejected
}

// Total returns the number of rows the partition was computed from.
func (p PartitionResult) Total() int {
	return len(p.Cleaned) + len(p.Invalid)
}

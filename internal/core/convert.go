package core

// convert.go provides type coercion for raw field values.
//
// Raw records arrive from CSV files (all strings) or from in-process producers
// (native Go numbers, bools, nil). These helpers collapse both shapes into
// typed values:
//   - Numbers from float/int types or numeric strings ("19.99", " 3 ")
//   - Counts from ints, integral floats, or ASCII digit strings
//   - Dates and timestamps from a fixed list of strict ISO-8601 layouts
//
// Helpers never panic; they report failure through a reason string so the
// normalizer can decide whether the failure is soft or hard.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// timestampLayouts are tried in order; all are strict ISO-8601 variants.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	dateLayout,
}

// nonFiniteTokens are numeric spellings that parse but are never valid amounts.
var nonFiniteTokens = map[string]bool{
	"nan": true, "+nan": true, "-nan": true,
	"inf": true, "+inf": true, "-inf": true,
	"infinity": true, "+infinity": true, "-infinity": true,
}

// stringify renders a scalar raw value as text.
// Returns false for nil and for values with no sensible text form.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprint(t), true
	}
}

// toFloat coerces a native number or numeric string to float64.
func toFloat(v any) (float64, string) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, "field required"
	case bool:
		return 0, "not a number"
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	default:
		s, _ := stringify(v)
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, "field required"
		}
		if nonFiniteTokens[strings.ToLower(s)] {
			return 0, "not a finite number"
		}
		if isHexLiteral(s) {
			return 0, "not a number"
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, "not a number"
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "not a finite number"
	}
	return f, ""
}

// toCount coerces an int, integral float or digit-only string to int.
// Signs are rejected on strings: "-3" is not a count.
func toCount(v any) (int, string) {
	switch t := v.(type) {
	case nil:
		return 0, "field required"
	case bool:
		return 0, "not a whole number"
	case int:
		return t, ""
	case int32:
		return int(t), ""
	case int64:
		return int(t), ""
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, "not a whole number"
		}
		return int(t), ""
	}

	s, _ := stringify(v)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "field required"
	}
	if !isDigits(s) {
		return 0, "not a whole number"
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, "not a whole number"
	}
	return n, ""
}

// isHexLiteral reports a 0x-prefixed number, which ParseFloat would accept.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// parseTimestamp parses an ISO-8601 date-time, or a bare date as midnight UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatValue renders a normalized value as CSV cell text.
// Null becomes the empty string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case Date:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		s, _ := stringify(t)
		return s
	}
}

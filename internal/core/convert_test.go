package core

import (
	"math"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// toFloat Tests
// ----------------------------------------------------------------------------

func TestToFloat(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		want       float64
		wantReason string
	}{
		// Valid: native numbers
		{name: "int", input: 3, want: 3},
		{name: "int64", input: int64(-7), want: -7},
		{name: "float64", input: 19.99, want: 19.99},

		// Valid: numeric strings
		{name: "decimal string", input: "19.99", want: 19.99},
		{name: "padded string", input: "  42 ", want: 42},
		{name: "negative string", input: "-10", want: -10},
		{name: "exponent", input: "1e3", want: 1000},

		// Invalid
		{name: "nil", input: nil, wantReason: "field required"},
		{name: "blank string", input: "   ", wantReason: "field required"},
		{name: "word", input: "free", wantReason: "not a number"},
		{name: "currency symbol", input: "$10", wantReason: "not a number"},
		{name: "bool", input: true, wantReason: "not a number"},
		{name: "NaN token", input: "NaN", wantReason: "not a finite number"},
		{name: "inf token", input: "-Inf", wantReason: "not a finite number"},
		{name: "native NaN", input: math.NaN(), wantReason: "not a finite number"},
		{name: "native Inf", input: math.Inf(1), wantReason: "not a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := toFloat(tt.input)
			if reason != tt.wantReason {
				t.Fatalf("toFloat(%v) reason = %q, want %q", tt.input, reason, tt.wantReason)
			}
			if reason == "" && got != tt.want {
				t.Errorf("toFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// toCount Tests
// ----------------------------------------------------------------------------

func TestToCount(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		want       int
		wantReason string
	}{
		{name: "int", input: 3, want: 3},
		{name: "zero", input: 0, want: 0},
		{name: "negative int passes coercion", input: -3, want: -3},
		{name: "integral float", input: 4.0, want: 4},
		{name: "digit string", input: "12", want: 12},
		{name: "padded digit string", input: " 5 ", want: 5},

		{name: "nil", input: nil, wantReason: "field required"},
		{name: "empty", input: "", wantReason: "field required"},
		{name: "fractional float", input: 2.5, wantReason: "not a whole number"},
		{name: "word", input: "ten", wantReason: "not a whole number"},
		{name: "signed string", input: "-3", wantReason: "not a whole number"},
		{name: "question marks", input: "??", wantReason: "not a whole number"},
		{name: "decimal string", input: "3.0", wantReason: "not a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := toCount(tt.input)
			if reason != tt.wantReason {
				t.Fatalf("toCount(%v) reason = %q, want %q", tt.input, reason, tt.wantReason)
			}
			if reason == "" && got != tt.want {
				t.Errorf("toCount(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Date and Timestamp Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "iso date", input: "2024-01-01", want: Date{2024, time.January, 1}},
		{name: "padded", input: " 2024-02-29 ", want: Date{2024, time.February, 29}},
		{name: "slashes", input: "2024/01/01", wantErr: true},
		{name: "us format", input: "01/15/2024", wantErr: true},
		{name: "impossible day", input: "2023-02-30", wantErr: true},
		{name: "garbage", input: "not-a-date", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "rfc3339 with zone",
			input:  "2024-03-05T10:15:00Z",
			want:   time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso without zone",
			input:  "2024-03-05T10:15:00",
			want:   time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "fractional seconds",
			input:  "2024-03-05T10:15:00.123456",
			want:   time.Date(2024, 3, 5, 10, 15, 0, 123456000, time.UTC),
			wantOK: true,
		},
		{
			name:   "space separator",
			input:  "2024-03-05 10:15:00",
			want:   time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "date only is midnight",
			input:  "2024-03-05",
			want:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{name: "malformed", input: "2024-13-45T99:00:00", wantOK: false},
		{name: "words", input: "yesterday", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("parseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// FormatValue Tests
// ----------------------------------------------------------------------------

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "null", input: nil, want: ""},
		{name: "string", input: "US", want: "US"},
		{name: "true", input: true, want: "true"},
		{name: "false", input: false, want: "false"},
		{name: "int", input: 3, want: "3"},
		{name: "whole float", input: 10.0, want: "10"},
		{name: "decimal float", input: 19.99, want: "19.99"},
		{name: "date", input: Date{2024, time.January, 1}, want: "2024-01-01"},
		{name: "timestamp", input: time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC), want: "2024-03-05T10:15:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.input); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

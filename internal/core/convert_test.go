package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   float64
	}{
		// Valid: Basic integers
		{name: "positive integer", input: "123", wantOK: true, want: 123},
		{name: "zero", input: "0", wantOK: true, want: 0},
		{name: "negative integer", input: "-456", wantOK: true, want: -456},

		// Valid: Decimals
		{name: "decimal number", input: "123.45", wantOK: true, want: 123.45},
		{name: "leading decimal point", input: ".99", wantOK: true, want: 0.99},
		{name: "trailing decimal point", input: "99.", wantOK: true, want: 99},

		// Valid: Currency and separators
		{name: "dollar sign", input: "$1,234.56", wantOK: true, want: 1234.56},
		{name: "euro sign", input: "€1234.56", wantOK: true, want: 1234.56},
		{name: "pound sign", input: "£1234.56", wantOK: true, want: 1234.56},
		{name: "thousands separators", input: "1,234,567", wantOK: true, want: 1234567},

		// Valid: Accounting negative
		{name: "accounting negative", input: "(1,234.50)", wantOK: true, want: -1234.5},

		// Valid: Scientific notation
		{name: "scientific notation", input: "1.5e3", wantOK: true, want: 1500},

		// Valid: Spreadsheet artifacts
		{name: "excel formula prefix", input: `="42"`, wantOK: true, want: 42},
		{name: "surrounding whitespace", input: "  7  ", wantOK: true, want: 7},

		// Invalid
		{name: "empty string", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "letters", input: "abc", wantOK: false},
		{name: "mixed", input: "12abc", wantOK: false},
		{name: "two decimal points", input: "1.2.3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string // YYYY-MM-DD
	}{
		{name: "ISO date", input: "2023-04-15", wantOK: true, want: "2023-04-15"},
		{name: "RFC 3339 timestamp", input: "2023-04-15T10:30:00Z", wantOK: true, want: "2023-04-15"},
		{name: "timestamp without zone", input: "2023-04-15T10:30:00", wantOK: true, want: "2023-04-15"},
		{name: "US slash date", input: "4/15/2023", wantOK: true, want: "2023-04-15"},
		{name: "US padded date", input: "04/15/2023", wantOK: true, want: "2023-04-15"},
		{name: "slash ISO", input: "2023/04/15", wantOK: true, want: "2023-04-15"},
		{name: "month name", input: "Apr 15, 2023", wantOK: true, want: "2023-04-15"},
		{name: "compact", input: "20230415", wantOK: true, want: "2023-04-15"},
		{name: "two digit year", input: "4/15/23", wantOK: true, want: "2023-04-15"},
		{name: "empty", input: "", wantOK: false},
		{name: "garbage", input: "not a date", wantOK: false},
		{name: "invalid month", input: "13/45/2023", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got.Format(time.DateOnly) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format(time.DateOnly), tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	// A two-digit year far beyond the pivot belongs to the previous century.
	farFuture := (time.Now().Year() + TwoDigitYearPivot + 5) % 100
	input := "1/1/" + twoDigits(farFuture)

	got, ok := ParseDate(input)
	if !ok {
		t.Fatalf("ParseDate(%q) failed", input)
	}
	if got.Year() > time.Now().Year()+TwoDigitYearPivot {
		t.Errorf("ParseDate(%q) year = %d, want <= %d", input, got.Year(), time.Now().Year()+TwoDigitYearPivot)
	}
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// ----------------------------------------------------------------------------
// ToValue Tests
// ----------------------------------------------------------------------------

func TestToValue(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		kind      FieldKind
		wantValid bool
		wantText  string // coerced via Value.String
	}{
		{name: "string", raw: "Hello", kind: KindString, wantValid: true, wantText: "Hello"},
		{name: "blank string is absent", raw: "   ", kind: KindString, wantValid: false},
		{name: "quoted string kept verbatim", raw: `"Tum Hi Ho"`, kind: KindString, wantValid: true, wantText: `"Tum Hi Ho"`},
		{name: "padding kept", raw: "  padded  ", kind: KindString, wantValid: true, wantText: "  padded  "},
		{name: "formula wrapper kept", raw: `="0012"`, kind: KindString, wantValid: true, wantText: `="0012"`},
		{name: "formula wrapped number", raw: `="1,200"`, kind: KindNumber, wantValid: true, wantText: "1200"},
		{name: "nil string is absent", raw: nil, kind: KindString, wantValid: false},
		{name: "number as string field", raw: float64(12), kind: KindString, wantValid: true, wantText: "12"},
		{name: "json number", raw: json.Number("1500"), kind: KindNumber, wantValid: true, wantText: "1500"},
		{name: "float number", raw: 2.5, kind: KindNumber, wantValid: true, wantText: "2.5"},
		{name: "int number", raw: 7, kind: KindNumber, wantValid: true, wantText: "7"},
		{name: "numeric string", raw: "1,000", kind: KindNumber, wantValid: true, wantText: "1000"},
		{name: "non-numeric string", raw: "many", kind: KindNumber, wantValid: false},
		{name: "NaN is absent", raw: math.NaN(), kind: KindNumber, wantValid: false},
		{name: "bool is not a number", raw: true, kind: KindNumber, wantValid: false},
		{name: "date string", raw: "2021-06-01T00:00:00.000Z", kind: KindDate, wantValid: true, wantText: "2021-06-01"},
		{name: "unparseable date", raw: "soon", kind: KindDate, wantValid: false},
		{name: "number is not a date", raw: float64(20210601), kind: KindDate, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToValue(tt.raw, tt.kind)
			if got.Kind() != tt.kind {
				t.Errorf("ToValue().Kind() = %v, want %v", got.Kind(), tt.kind)
			}
			if got.Valid() != tt.wantValid {
				t.Fatalf("ToValue(%v).Valid() = %v, want %v", tt.raw, got.Valid(), tt.wantValid)
			}
			if got.String() != tt.wantText {
				t.Errorf("ToValue(%v).String() = %q, want %q", tt.raw, got.String(), tt.wantText)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "abc", want: "abc"},
		{name: "whitespace", input: "  abc  ", want: "abc"},
		{name: "excel formula", input: `="00123"`, want: "00123"},
		{name: "quoted", input: `"quoted"`, want: "quoted"},
		{name: "single quote char", input: `"`, want: `"`},
		{name: "empty", input: "", want: ""},
		{name: "inner whitespace kept", input: `" a b "`, want: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

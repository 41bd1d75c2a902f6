package core

import (
	"strconv"
	"time"
)

// Value is a single cell. It carries its kind and an explicit presence flag,
// so absent data is never confused with a zero value.
type Value struct {
	kind  FieldKind
	valid bool
	str   string
	num   float64
	at    time.Time
}

// Null returns an absent value of the given kind.
func Null(kind FieldKind) Value {
	return Value{kind: kind}
}

// StringValue returns a present string value.
func StringValue(s string) Value {
	return Value{kind: KindString, valid: true, str: s}
}

// NumberValue returns a present numeric value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, valid: true, num: n}
}

// DateValue returns a present date value.
func DateValue(t time.Time) Value {
	return Value{kind: KindDate, valid: true, at: t}
}

// Kind returns the kind of the value.
func (v Value) Kind() FieldKind { return v.kind }

// Valid reports whether the value is present.
func (v Value) Valid() bool { return v.valid }

// Text returns the string payload.
func (v Value) Text() (string, bool) {
	if !v.valid || v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Number returns the numeric payload.
func (v Value) Number() (float64, bool) {
	if !v.valid || v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) {
	if !v.valid || v.kind != KindDate {
		return time.Time{}, false
	}
	return v.at, true
}

// String coerces the value to text. Absent values are "".
// Numbers use the shortest exact decimal form, dates are YYYY-MM-DD.
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.at.Format(time.DateOnly)
	default:
		return v.str
	}
}

// Interface returns the payload as a plain Go value for JSON encoding:
// string, float64, time.Time, or nil when absent.
func (v Value) Interface() any {
	if !v.valid {
		return nil
	}
	switch v.kind {
	case KindNumber:
		return v.num
	case KindDate:
		return v.at
	default:
		return v.str
	}
}

// Record is one stored row. Values are positional and aligned with the
// schema the record was decoded with. A Record is immutable.
type Record struct {
	values []Value
}

// NewRecord builds a record from values in schema order. The slice is copied.
func NewRecord(values ...Value) Record {
	cp := make([]Value, len(values))
	copy(cp, values)
	return Record{values: cp}
}

// Get returns the value at ref, or an absent string value when out of range.
func (r Record) Get(ref FieldRef) Value {
	if int(ref) < 0 || int(ref) >= len(r.values) {
		return Null(KindString)
	}
	return r.values[ref]
}

// Len returns the number of values.
func (r Record) Len() int { return len(r.values) }

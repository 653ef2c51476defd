package table

import (
	"strconv"
	"time"
)

// Kind identifies the declared type of a column's values.
type Kind uint8

const (
	String Kind = iota
	Int
	Float
	Date
	DateTime
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// KindFromString maps a configuration type name to a Kind.
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "string":
		return String, true
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "date":
		return Date, true
	case "datetime":
		return DateTime, true
	default:
		return String, false
	}
}

// Value is a single typed cell. A Value is either valid or missing;
// missing values carry their kind but no payload. Statistical code must
// skip missing values rather than treat them as zero.
type Value struct {
	kind  Kind
	valid bool
	s     string
	i     int64
	f     float64
	t     time.Time
}

// Missing returns an invalid value of the given kind.
func Missing(k Kind) Value {
	return Value{kind: k}
}

// NewString returns a valid string value.
func NewString(s string) Value {
	return Value{kind: String, valid: true, s: s}
}

// NewInt returns a valid integer value.
func NewInt(i int64) Value {
	return Value{kind: Int, valid: true, i: i}
}

// NewFloat returns a valid float value.
func NewFloat(f float64) Value {
	return Value{kind: Float, valid: true, f: f}
}

// NewDate returns a valid date value; the time-of-day portion is dropped.
func NewDate(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: Date, valid: true, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDateTime returns a valid timestamp value.
func NewDateTime(t time.Time) Value {
	return Value{kind: DateTime, valid: true, t: t}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether the value is present.
func (v Value) Valid() bool { return v.valid }

// Str returns the string payload of a valid String value.
func (v Value) Str() (string, bool) {
	if !v.valid || v.kind != String {
		return "", false
	}
	return v.s, true
}

// Int returns the integer payload of a valid Int value.
func (v Value) Int() (int64, bool) {
	if !v.valid || v.kind != Int {
		return 0, false
	}
	return v.i, true
}

// Float returns the numeric payload of a valid Float or Int value.
func (v Value) Float() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	switch v.kind {
	case Float:
		return v.f, true
	case Int:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Time returns the time payload of a valid Date or DateTime value.
func (v Value) Time() (time.Time, bool) {
	if !v.valid || (v.kind != Date && v.kind != DateTime) {
		return time.Time{}, false
	}
	return v.t, true
}

// Text returns the value's textual form. Missing values render as the
// empty string.
func (v Value) Text() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case String:
		return v.s
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Date:
		return v.t.Format("2006-01-02")
	case DateTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

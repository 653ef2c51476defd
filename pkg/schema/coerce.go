package schema

import (
	"strconv"
	"strings"
	"time"

	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts every value in the column to the target kind in place.
// Missing values stay missing; unparseable values become missing.
func Coerce(c *table.Column, kind table.Kind) {
	for i, v := range c.Values {
		c.Values[i] = coerceValue(v, kind)
	}
	c.Kind = kind
}

func coerceValue(v table.Value, kind table.Kind) table.Value {
	if !v.Valid() {
		return table.Missing(kind)
	}
	if v.Kind() == kind {
		return v
	}

	text := strings.TrimSpace(v.Text())
	if text == "" {
		return table.Missing(kind)
	}

	switch kind {
	case table.String:
		return table.NewString(v.Text())

	case table.Int:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return table.NewInt(n)
		}
		// Numeric text like "42.0" still coerces to int.
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return table.NewInt(int64(f))
		}
		return table.Missing(kind)

	case table.Float:
		if f, ok := v.Float(); ok {
			return table.NewFloat(f)
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return table.NewFloat(f)
		}
		return table.Missing(kind)

	case table.Date:
		if t, ok := v.Time(); ok {
			return table.NewDate(t)
		}
		if t, ok := ParseDatetime(text); ok {
			return table.NewDate(t)
		}
		return table.Missing(kind)

	case table.DateTime:
		if t, ok := v.Time(); ok {
			return table.NewDateTime(t)
		}
		if t, ok := ParseDatetime(text); ok {
			return table.NewDateTime(t)
		}
		return table.Missing(kind)

	default:
		return table.Missing(kind)
	}
}

// ParseDatetime parses text against the accepted timestamp layouts.
// Shared with de-identification, which must handle date columns that
// were never declared in the schema.
func ParseDatetime(text string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

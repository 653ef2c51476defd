// Package qc implements the statistical quality checks: range clipping
// and outlier flagging. All functions operate on the table in place and
// never raise on a per-value basis.
package qc

import (
	"strings"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/schema"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// PadZIP left-zero-pads the named column's values to the given width.
// Missing values and values already at or beyond the width pass through.
func PadZIP(t *table.Table, name string, width int) {
	c := t.Col(name)
	if c == nil {
		return
	}
	for i, v := range c.Values {
		if !v.Valid() {
			continue
		}
		text := v.Text()
		if len(text) < width {
			text = strings.Repeat("0", width-len(text)) + text
		}
		c.Values[i] = table.NewString(text)
	}
	c.Kind = table.String
}

// ClipRanges clamps each configured numeric column to its [lo, hi]
// bounds. The column is re-coerced to float first; invalid values become
// missing and missing values pass through unchanged. Configured columns
// absent from the table are skipped. Clipping is idempotent.
func ClipRanges(t *table.Table, ranges map[string]config.Range) {
	for name, r := range ranges {
		c := t.Col(name)
		if c == nil {
			continue
		}
		schema.Coerce(c, table.Float)
		for i, v := range c.Values {
			f, ok := v.Float()
			if !ok {
				continue
			}
			switch {
			case f < r.Lo:
				c.Values[i] = table.NewFloat(r.Lo)
			case f > r.Hi:
				c.Values[i] = table.NewFloat(r.Hi)
			}
		}
	}
}

// Package schema validates required columns and coerces declared column
// types. Coercion is total and permissive: a value that cannot be parsed
// becomes a missing value, never an error.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Error reports required columns absent from the input, sorted for
// deterministic messages.
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("missing required columns: [%s]", strings.Join(e.Missing, " "))
}

// Enforce checks that every required column exists, then coerces each
// declared column type in place. Columns without a declared type, and
// declared columns absent from the table, are left untouched. Column
// order is preserved and unrequested columns are never dropped.
func Enforce(t *table.Table, cfg config.SchemaConfig) error {
	var missing []string
	for _, name := range cfg.RequiredColumns {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &Error{Missing: missing}
	}

	for _, c := range t.Columns() {
		typ, ok := cfg.Types[c.Name]
		if !ok {
			continue
		}
		kind, ok := table.KindFromString(typ)
		if !ok {
			continue
		}
		Coerce(c, kind)
	}
	return nil
}

// Package table holds the record batch passed between pipeline stages:
// an ordered collection of named, equal-length columns of typed values.
// Each stage takes exclusive ownership of the table, mutates it, and
// hands it to the next stage.
package table

import (
	"fmt"
)

// Column is a named sequence of values of one kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Table is an ordered set of columns, positionally row-aligned.
type Table struct {
	cols  []*Column
	index map[string]int
}

// New creates an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// NumRows returns the number of rows. An empty table has zero rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0].Values)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Col returns the named column, or nil if absent.
func (t *Table) Col(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return t.cols }

// SetColumn adds a column, or replaces one with the same name in place.
// The column length must match the table's row count unless the table
// is empty.
func (t *Table) SetColumn(c *Column) error {
	if len(t.cols) > 0 && len(c.Values) != t.NumRows() {
		return fmt.Errorf("column %q has %d values, table has %d rows",
			c.Name, len(c.Values), t.NumRows())
	}
	if i, ok := t.index[c.Name]; ok {
		t.cols[i] = c
		return nil
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Drop removes the named columns. Names not present are silently skipped.
func (t *Table) Drop(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := t.cols[:0]
	for _, c := range t.cols {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	t.cols = kept
	t.index = make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		t.index[c.Name] = i
	}
}

// Row returns a snapshot of row i as a name -> value map.
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.cols))
	for _, c := range t.cols {
		row[c.Name] = c.Values[i]
	}
	return row
}

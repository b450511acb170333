package codec

import "slices"

// IDColumn is the reserved name of the positional identifier column.
const IDColumn = "#"

// Table is the materialized content of a relation file.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns a table with only the identifier column.
func NewTable() *Table {
	return &Table{Columns: []string{IDColumn}}
}

// Width returns the number of columns, including the identifier column.
func (t *Table) Width() int {
	return len(t.Columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Columns, name)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = slices.Clone(row)
	}
	return c
}

// Package table holds the tabular dataset shared by readers, the index builder and the reporter.
package table

import (
	"fmt"

	"github.com/kailas-cloud/canonic/internal/domain"
)

// Cell is a single dataset value. The zero Cell is missing.
type Cell struct {
	value string
	valid bool
}

// Value creates a present cell.
func Value(s string) Cell { return Cell{value: s, valid: true} }

// Missing creates a null cell.
func Missing() Cell { return Cell{} }

// Get returns the value and whether the cell is present.
func (c Cell) Get() (string, bool) { return c.value, c.valid }

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool { return !c.valid }

// Text returns the value, or "" for a missing cell.
func (c Cell) Text() string { return c.value }

// Table is an ordered set of named columns over ordered rows (immutable value object).
type Table struct {
	columns []string
	rows    [][]Cell
}

// New validates and creates a Table. Short rows are padded with missing cells.
func New(columns []string, rows [][]Cell) (Table, error) {
	width := len(columns)
	out := make([][]Cell, len(rows))
	for i, r := range rows {
		if len(r) > width {
			return Table{}, fmt.Errorf("row %d has %d cells, header has %d", i, len(r), width)
		}
		row := make([]Cell, width)
		copy(row, r)
		out[i] = row
	}
	return Table{columns: append([]string(nil), columns...), rows: out}, nil
}

// Columns returns the column names in order.
func (t Table) Columns() []string { return append([]string(nil), t.columns...) }

// Width returns the number of columns.
func (t Table) Width() int { return len(t.columns) }

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Row returns a copy of row i.
func (t Table) Row(i int) []Cell { return append([]Cell(nil), t.rows[i]...) }

// ColumnIndex returns the position of the named column.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%q: %w", name, domain.ErrColumnNotFound)
}

// HasColumn reports whether the named column exists.
func (t Table) HasColumn(name string) bool {
	_, err := t.ColumnIndex(name)
	return err == nil
}

// ColumnAt returns the cells of column i in row order.
func (t Table) ColumnAt(i int) []Cell {
	cells := make([]Cell, len(t.rows))
	for r, row := range t.rows {
		cells[r] = row[i]
	}
	return cells
}

// Column returns the cells of the named column in row order.
func (t Table) Column(name string) ([]Cell, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return t.ColumnAt(i), nil
}

// WithColumn returns a new Table with an extra column appended. The receiver is not modified.
func (t Table) WithColumn(name string, cells []Cell) (Table, error) {
	if len(cells) != len(t.rows) {
		return Table{}, fmt.Errorf("column %q has %d cells, table has %d rows", name, len(cells), len(t.rows))
	}
	rows := make([][]Cell, len(t.rows))
	for i, row := range t.rows {
		r := make([]Cell, 0, len(row)+1)
		r = append(r, row...)
		rows[i] = append(r, cells[i])
	}
	return Table{
		columns: append(append([]string(nil), t.columns...), name),
		rows:    rows,
	}, nil
}

// Distinct returns the present values of cells in first-seen order, without duplicates.
func Distinct(cells []Cell) []string {
	seen := make(map[string]struct{}, len(cells))
	var out []string
	for _, c := range cells {
		v, ok := c.Get()
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package etl

import "strconv"

// ── Table ──────────────────────────────────────────────────
// Common intermediate data format.
// Sources produce Tables, transforms rewrite them, destinations consume them.
// Every row holds exactly len(Columns) cells.

// Table is an in-memory delimited table: named columns over string rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the first column named name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values of the first column named name.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	vals := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		vals[i] = row[idx]
	}
	return vals, true
}

// AppendColumn adds a column at the end. values must have one entry per row.
func (t *Table) AppendColumn(name string, values []string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
}

// SetColumn replaces the values of the first column named name, or appends
// the column when there is none.
func (t *Table) SetColumn(name string, values []string) {
	c := t.ColumnIndex(name)
	if c < 0 {
		t.AppendColumn(name, values)
		return
	}
	for i := range t.Rows {
		t.Rows[i][c] = values[i]
	}
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// RowPositions returns "0" … "n-1" for a table of n rows.
func RowPositions(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// Package table holds the in-memory tabular model shared by every pipeline
// stage: Values, Records and Datasets, plus CSV decoding and encoding.
package table

import "strings"

// Record is one row keyed by column name. Absent keys read as Missing.
type Record map[string]Value

// Dataset is an ordered sequence of records sharing Columns.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Record
}

// New returns an empty dataset with a copy of cols.
func New(name string, cols []string) *Dataset {
	return &Dataset{Name: name, Columns: append([]string(nil), cols...)}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Append adds r, keeping only the dataset's columns.
func (d *Dataset) Append(r Record) {
	row := make(Record, len(d.Columns))
	for _, c := range d.Columns {
		if v, ok := r[c]; ok && !v.IsMissing() {
			row[c] = v
		}
	}
	d.Rows = append(d.Rows, row)
}

// Get returns the cell at row i, column col.
func (d *Dataset) Get(i int, col string) Value {
	return d.Rows[i][col]
}

// Set stores v at row i, column col. Missing values are not stored.
func (d *Dataset) Set(i int, col string, v Value) {
	if v.IsMissing() {
		delete(d.Rows[i], col)
		return
	}
	d.Rows[i][col] = v
}

// HasColumn reports whether col is part of the schema (exact match).
func (d *Dataset) HasColumn(col string) bool {
	return d.ColumnIndex(col) >= 0
}

// ColumnIndex returns the position of col or -1.
func (d *Dataset) ColumnIndex(col string) int {
	for i, c := range d.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Column returns the values of col in row order.
func (d *Dataset) Column(col string) []Value {
	out := make([]Value, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[col]
	}
	return out
}

// AddColumn appends col to the schema (if new) and sets its values.
// vals must have one entry per row.
func (d *Dataset) AddColumn(col string, vals []Value) {
	if !d.HasColumn(col) {
		d.Columns = append(d.Columns, col)
	}
	for i := range d.Rows {
		d.Set(i, col, vals[i])
	}
}


// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	out := New(d.Name, d.Columns)
	out.Rows = make([]Record, len(d.Rows))
	for i, r := range d.Rows {
		row := make(Record, len(r))
		for k, v := range r {
			row[k] = v
		}
		out.Rows[i] = row
	}
	return out
}

// Project returns a new dataset restricted to cols, in that order.
func (d *Dataset) Project(cols []string) *Dataset {
	out := New(d.Name, cols)
	out.Rows = make([]Record, 0, len(d.Rows))
	for _, r := range d.Rows {
		out.Append(r)
	}
	return out
}

// RowKey joins the kind-tagged cells of row i over cols.
func (d *Dataset) RowKey(i int, cols []string) string {
	var b strings.Builder
	for j, c := range cols {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(d.Rows[i][c].Key())
	}
	return b.String()
}

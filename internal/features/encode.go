package features

import (
	"sort"

	"movora/internal/table"
)

// Encoder one-hot encodes categorical columns. Categories are the sorted
// distinct values observed at fit time; Missing and unseen values encode
// to all zeros.
type Encoder struct {
	Columns    []string
	Categories [][]string
	index      []map[string]int
}

// NewEncoder returns an unfitted encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Fit records the categories of every column in cols.
func (e *Encoder) Fit(ds *table.Dataset, cols []string) {
	e.Columns = append([]string(nil), cols...)
	e.Categories = make([][]string, len(cols))
	e.index = make([]map[string]int, len(cols))
	for j, col := range cols {
		seen := map[string]struct{}{}
		for _, r := range ds.Rows {
			v := r[col]
			if v.IsMissing() {
				continue
			}
			seen[v.String()] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		idx := make(map[string]int, len(cats))
		for k, c := range cats {
			idx[c] = k
		}
		e.Categories[j] = cats
		e.index[j] = idx
	}
}

// FeatureNames returns "<column>_<category>" for every indicator, in
// output order. Names may repeat across columns.
func (e *Encoder) FeatureNames() []string {
	var names []string
	for j, col := range e.Columns {
		for _, c := range e.Categories[j] {
			names = append(names, col+"_"+c)
		}
	}
	return names
}

// Width is the number of indicator columns.
func (e *Encoder) Width() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform returns one indicator row per record, aligned with
// FeatureNames.
func (e *Encoder) Transform(ds *table.Dataset) [][]float64 {
	width := e.Width()
	out := make([][]float64, ds.Len())
	for i, r := range ds.Rows {
		row := make([]float64, width)
		offset := 0
		for j, col := range e.Columns {
			if v := r[col]; !v.IsMissing() {
				if k, ok := e.index[j][v.String()]; ok {
					row[offset+k] = 1
				}
			}
			offset += len(e.Categories[j])
		}
		out[i] = row
	}
	return out
}

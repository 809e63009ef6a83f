package features

import (
	"gonum.org/v1/gonum/stat"

	"movora/internal/table"
)

// Scaler standardizes numeric columns to zero mean and unit population
// variance. A column whose values are all equal scales to 0.
type Scaler struct {
	Columns  []string
	Mean     []float64
	Std      []float64
	constant []bool
	empty    []bool
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler { return &Scaler{} }

// Fit computes per-column mean and population standard deviation over the
// defined cells of cols.
func (s *Scaler) Fit(ds *table.Dataset, cols []string) {
	n := len(cols)
	s.Columns = append([]string(nil), cols...)
	s.Mean = make([]float64, n)
	s.Std = make([]float64, n)
	s.constant = make([]bool, n)
	s.empty = make([]bool, n)
	for j, col := range cols {
		var xs []float64
		for _, r := range ds.Rows {
			if f, ok := r[col].Float(); ok {
				xs = append(xs, f)
			}
		}
		if len(xs) == 0 {
			s.empty[j] = true
			continue
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(xs, nil)
		s.constant[j] = allEqual(xs)
	}
}

// Transform returns one scaled row per record, aligned with s.Columns.
// Missing cells stay Missing.
func (s *Scaler) Transform(ds *table.Dataset) [][]table.Value {
	out := make([][]table.Value, ds.Len())
	for i, r := range ds.Rows {
		row := make([]table.Value, len(s.Columns))
		for j, col := range s.Columns {
			row[j] = s.scale(j, r[col])
		}
		out[i] = row
	}
	return out
}

// FitTransform is Fit followed by Transform on the same dataset.
func (s *Scaler) FitTransform(ds *table.Dataset, cols []string) [][]table.Value {
	s.Fit(ds, cols)
	return s.Transform(ds)
}

func (s *Scaler) scale(j int, v table.Value) table.Value {
	f, ok := v.Float()
	if !ok || s.empty[j] {
		return table.Missing
	}
	if s.constant[j] || s.Std[j] == 0 {
		return table.Number(0)
	}
	return table.Number((f - s.Mean[j]) / s.Std[j])
}

func allEqual(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

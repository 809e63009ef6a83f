// Package features turns a master listing dataset into a model-ready table:
// a two-/four-wheeler label, standardized numeric columns and one-hot
// indicator columns.
package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"movora/internal/schema"
	"movora/internal/table"
)

// ErrMissingColumn is returned when a column the label depends on is absent.
var ErrMissingColumn = errors.New("required column missing")

const (
	LabelColumn = "Vehicle_Type"
	TwoWheeler  = "2W"
	FourWheeler = "4W"

	DefaultSeatingColumn      = "Seating Capacity"
	DefaultDisplacementColumn = "Displacement (cc)"

	maxSeats2W        = 2
	maxDisplacement2W = 400
)

// Options controls Build. Column names are matched canonically.
type Options struct {
	SeatingColumn      string
	DisplacementColumn string
	// Exclude drops identifier columns from both partitions.
	Exclude []string
}

// Result is the output of Build.
type Result struct {
	Dataset            *table.Dataset
	NumericColumns     []string
	CategoricalColumns []string
	IndicatorColumns   []string
	// EmptyColumns are numeric columns with no values; they stay Missing.
	EmptyColumns []string
	Imputed      map[string]int
	// LabelCarried is set when the input already had a label column.
	LabelCarried bool

	Scaler  *Scaler
	Encoder *Encoder
}

// Build derives the label, partitions the remaining columns by type,
// imputes and scales the numeric ones and encodes the categorical ones.
// ds is not modified. Output columns are numeric, indicators, label, in
// input row order.
func Build(ds *table.Dataset, opts Options) (*Result, error) {
	work := ds.Clone()
	res := &Result{Imputed: map[string]int{}}

	labels, labelCol, err := label(work, opts)
	if err != nil {
		return nil, err
	}
	res.LabelCarried = labelCol != ""

	skip := map[string]bool{}
	if labelCol != "" {
		skip[labelCol] = true
	}
	for _, name := range opts.Exclude {
		if col, ok := schema.Lookup(work, name); ok {
			skip[col] = true
		}
	}
	for _, col := range work.Columns {
		if skip[col] {
			continue
		}
		if schema.IsNumeric(work, col) {
			res.NumericColumns = append(res.NumericColumns, col)
		} else {
			res.CategoricalColumns = append(res.CategoricalColumns, col)
		}
	}

	for _, col := range res.NumericColumns {
		schema.Coerce(work, col)
		filled, ok := schema.FillMedian(work, col)
		if !ok {
			res.EmptyColumns = append(res.EmptyColumns, col)
			continue
		}
		if filled > 0 {
			res.Imputed[col] = filled
		}
	}

	res.Scaler = NewScaler()
	scaled := res.Scaler.FitTransform(work, res.NumericColumns)
	res.Encoder = NewEncoder()
	res.Encoder.Fit(work, res.CategoricalColumns)
	encoded := res.Encoder.Transform(work)

	res.IndicatorColumns = uniqueNames(res.Encoder.FeatureNames(), append(append([]string(nil), res.NumericColumns...), LabelColumn))

	header := make([]string, 0, len(res.NumericColumns)+len(res.IndicatorColumns)+1)
	header = append(header, res.NumericColumns...)
	header = append(header, res.IndicatorColumns...)
	header = append(header, LabelColumn)

	out := table.New(ds.Name+"_ml", header)
	out.Rows = make([]table.Record, work.Len())
	for i := range work.Rows {
		row := make(table.Record, len(header))
		for j, col := range res.NumericColumns {
			if v := scaled[i][j]; !v.IsMissing() {
				row[col] = v
			}
		}
		for j, col := range res.IndicatorColumns {
			row[col] = table.Number(encoded[i][j])
		}
		if labels[i] != "" {
			row[LabelColumn] = table.Text(labels[i])
		}
		out.Rows[i] = row
	}
	res.Dataset = out
	return res, nil
}

// Classify returns TwoWheeler when both values are defined, seating is at
// most 2 and displacement at most 400 cc, and FourWheeler otherwise.
func Classify(seating, displacement table.Value) string {
	s, sok := seating.Float()
	d, dok := displacement.Float()
	if sok && dok && s <= maxSeats2W && d <= maxDisplacement2W {
		return TwoWheeler
	}
	return FourWheeler
}

// label returns one label per row. When ds already carries a label column
// its values are used and its name is returned so it can be excluded.
func label(ds *table.Dataset, opts Options) ([]string, string, error) {
	labels := make([]string, ds.Len())
	if col, ok := schema.Lookup(ds, LabelColumn); ok {
		for i, r := range ds.Rows {
			labels[i] = r[col].String()
		}
		return labels, col, nil
	}

	seatName := opts.SeatingColumn
	if seatName == "" {
		seatName = DefaultSeatingColumn
	}
	dispName := opts.DisplacementColumn
	if dispName == "" {
		dispName = DefaultDisplacementColumn
	}
	seat, ok := schema.Lookup(ds, seatName)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrMissingColumn, seatName)
	}
	disp, ok := schema.Lookup(ds, dispName)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrMissingColumn, dispName)
	}
	schema.Coerce(ds, seat)
	schema.Coerce(ds, disp)
	for i, r := range ds.Rows {
		labels[i] = Classify(r[seat], r[disp])
	}
	return labels, "", nil
}

// uniqueNames returns names with repeats (and names already in reserved)
// given a "_<n>" suffix, n counting occurrences from 2 and skipping any
// name already taken.
// uniqueNames suffixes names that repeat an earlier or reserved name. Names
// are compared case-insensitively, the way SQLite compares column names.
func uniqueNames(names, reserved []string) []string {
	taken := make(map[string]struct{}, len(names)+len(reserved))
	for _, r := range reserved {
		taken[strings.ToLower(r)] = struct{}{}
	}
	count := map[string]int{}
	out := make([]string, len(names))
	for i, name := range names {
		key := strings.ToLower(name)
		count[key]++
		if _, used := taken[key]; !used {
			taken[key] = struct{}{}
			out[i] = name
			continue
		}
		n := max(count[key], 2)
		for {
			candidate := name + "_" + strconv.Itoa(n)
			if _, used := taken[strings.ToLower(candidate)]; !used {
				taken[strings.ToLower(candidate)] = struct{}{}
				out[i] = candidate
				break
			}
			n++
		}
	}
	return out
}

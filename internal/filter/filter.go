// Package filter selects listings by price and shapes them for display.
package filter

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"movora/internal/price"
	"movora/internal/schema"
	"movora/internal/table"
)

var (
	ErrInvalidRange  = errors.New("min price is greater than max price")
	ErrMissingColumn = errors.New("column not found")
)

// PriceColumn is the derived numeric price column, in Lakhs.
const PriceColumn = "price_cleaned"

// ListingColumns are shown for each matching vehicle when present.
var ListingColumns = []string{"name", "price", "mileage", "engine", "fuel_type", "seating_capacity", "top_speed"}

// ByPrice returns the rows of ds whose price in column lies in [min, max].
// Numeric cells are used as-is and text cells go through price.Parse; rows
// with an undefined price are dropped. Row order is kept. Infinite bounds
// are open ends; a NaN bound is an invalid range.
func ByPrice(ds *table.Dataset, column string, min, max float64) (*table.Dataset, error) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return nil, fmt.Errorf("%w: bound is NaN", ErrInvalidRange)
	}
	if min > max {
		return nil, fmt.Errorf("%w: %v > %v", ErrInvalidRange, min, max)
	}
	col, ok := schema.Lookup(ds, column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}
	out := table.New(ds.Name, ds.Columns)
	for _, r := range ds.Rows {
		v, ok := Value(r[col])
		if !ok || v < min || v > max {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// Value is the price held by a cell.
func Value(v table.Value) (float64, bool) {
	if v.IsNumber() {
		return v.Float()
	}
	if v.IsMissing() {
		return 0, false
	}
	return price.Parse(v.String())
}

// Display renders a Lakh value for listing output.
func Display(v float64) string { return price.Format(v) }

// DerivePrice adds dst to ds with the Lakh value of src for every row.
// Plain numbers are read in unit. It returns how many rows had a price.
func DerivePrice(ds *table.Dataset, src, dst string, unit price.Unit) (int, error) {
	col, ok := schema.Lookup(ds, src)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingColumn, src)
	}
	vals := make([]table.Value, ds.Len())
	parsed := 0
	for i, r := range ds.Rows {
		cell := r[col]
		var (
			v  float64
			ok bool
		)
		switch {
		case cell.IsNumber():
			v, _ = cell.Float()
			v, ok = price.ToLakh(v, unit), true
		case !cell.IsMissing():
			v, ok = price.ParseIn(cell.String(), unit)
		}
		if ok {
			vals[i] = table.Number(v)
			parsed++
		}
	}
	ds.AddColumn(dst, vals)
	return parsed, nil
}

// Options returns the sorted distinct prices of column, the choices a
// range picker offers.
func Options(ds *table.Dataset, column string) ([]float64, error) {
	col, ok := schema.Lookup(ds, column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}
	seen := map[float64]struct{}{}
	var out []float64
	for _, r := range ds.Rows {
		v, ok := Value(r[col])
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out, nil
}

// Listing projects ds onto the ListingColumns it has, using the dataset's
// own column names.
func Listing(ds *table.Dataset) *table.Dataset {
	var cols []string
	for _, want := range ListingColumns {
		if col, ok := schema.Lookup(ds, want); ok {
			cols = append(cols, col)
		}
	}
	return ds.Project(cols)
}

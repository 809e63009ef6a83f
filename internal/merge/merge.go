// Package merge combines listing datasets on their shared columns.
package merge

import (
	"errors"
	"fmt"
	"sort"

	"movora/internal/table"
)

// ErrNoCommonColumns is returned when two datasets share no column.
var ErrNoCommonColumns = errors.New("datasets have no common columns")

// CommonColumns returns the sorted intersection of the two schemas.
func CommonColumns(a, b *table.Dataset) []string {
	inB := make(map[string]struct{}, len(b.Columns))
	for _, c := range b.Columns {
		inB[c] = struct{}{}
	}
	var common []string
	for _, c := range a.Columns {
		if _, ok := inB[c]; ok {
			common = append(common, c)
		}
	}
	sort.Strings(common)
	return common
}

// Merge projects a and b onto their common columns, appends b's rows after
// a's and drops exact duplicate rows, keeping the first occurrence.
func Merge(a, b *table.Dataset) (*table.Dataset, error) {
	cols := CommonColumns(a, b)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q and %q", ErrNoCommonColumns, a.Name, b.Name)
	}
	out := table.New(a.Name+"+"+b.Name, cols)
	out.Rows = make([]table.Record, 0, a.Len()+b.Len())
	for _, src := range []*table.Dataset{a, b} {
		for _, r := range src.Rows {
			out.Append(r)
		}
	}
	return DropDuplicates(out), nil
}

// MergeAll folds Merge left to right. A single dataset is returned as a
// deduplicated copy.
func MergeAll(ds ...*table.Dataset) (*table.Dataset, error) {
	if len(ds) == 0 {
		return nil, errors.New("merge: no datasets")
	}
	acc := DropDuplicates(ds[0].Clone())
	for _, next := range ds[1:] {
		merged, err := Merge(acc, next)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// DropDuplicates removes rows whose every cell equals an earlier row's.
func DropDuplicates(ds *table.Dataset) *table.Dataset {
	seen := make(map[string]struct{}, ds.Len())
	rows := ds.Rows[:0:0]
	for i, r := range ds.Rows {
		key := ds.RowKey(i, ds.Columns)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, r)
	}
	ds.Rows = rows
	return ds
}

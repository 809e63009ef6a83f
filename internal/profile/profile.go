// Package profile summarizes the columns of a listing dataset and scores how
// alike two column headers are, so mismatched sources can be reported
// before they are merged.
package profile

import (
	"strings"

	"movora/internal/price"
	"movora/internal/table"
)

const sampleSize = 500

// Column is the profile of one column.
type Column struct {
	Name                    string   `json:"name"`
	RowCount                int      `json:"row_count"`
	NonEmptyCount           int      `json:"non_empty_count"`
	NullCount               int      `json:"null_count"`
	UniqueNonEmptyCount     int      `json:"unique_non_empty_count"`
	IsUniqueNonEmpty        bool     `json:"is_unique_non_empty"`
	UniquenessRatioNonEmpty float64  `json:"uniqueness_ratio_non_empty"`
	NumericRatio            float64  `json:"numeric_ratio"`
	PriceRatio              float64  `json:"price_ratio"`
	AvgLenSample            float64  `json:"avg_len_sample"`
	MaxLenSample            int      `json:"max_len_sample"`
	HeaderTokens            []string `json:"header_tokens"`
}

// Report is the profile of a whole dataset.
type Report struct {
	Name          string   `json:"name"`
	RowCount      int      `json:"row_count"`
	ColumnCount   int      `json:"column_count"`
	UniqueColumns []string `json:"unique_columns"`
	Columns       []Column `json:"columns"`
}

// Dataset profiles every column of ds in schema order. Ratios are computed
// over the first 500 non-empty cells.
func Dataset(ds *table.Dataset) Report {
	rep := Report{Name: ds.Name, RowCount: ds.Len(), ColumnCount: len(ds.Columns), UniqueColumns: []string{}}
	for _, col := range ds.Columns {
		c := profileColumn(ds, col)
		if c.IsUniqueNonEmpty {
			rep.UniqueColumns = append(rep.UniqueColumns, col)
		}
		rep.Columns = append(rep.Columns, c)
	}
	return rep
}

func profileColumn(ds *table.Dataset, col string) Column {
	rowCount := ds.Len()
	nonEmpty := make([]table.Value, 0, rowCount)
	uniq := make(map[string]struct{})
	for _, r := range ds.Rows {
		v := r[col]
		if v.IsMissing() || strings.TrimSpace(v.String()) == "" {
			continue
		}
		nonEmpty = append(nonEmpty, v)
		uniq[v.Key()] = struct{}{}
	}

	n := len(nonEmpty)
	sampleN := min(sampleSize, n)
	numericHits, priceHits, maxLen := 0, 0, 0
	var totalLen float64
	for _, v := range nonEmpty[:sampleN] {
		if _, ok := v.Float(); ok {
			numericHits++
		}
		if v.IsNumber() {
			priceHits++
		} else if _, ok := price.Parse(v.String()); ok {
			priceHits++
		}
		l := len([]rune(strings.TrimSpace(v.String())))
		totalLen += float64(l)
		maxLen = max(maxLen, l)
	}

	c := Column{
		Name:                col,
		RowCount:            rowCount,
		NonEmptyCount:       n,
		NullCount:           rowCount - n,
		UniqueNonEmptyCount: len(uniq),
		IsUniqueNonEmpty:    n > 0 && len(uniq) == n,
		MaxLenSample:        maxLen,
		HeaderTokens:        HeaderTokens(col),
	}
	if n > 0 {
		c.UniquenessRatioNonEmpty = float64(len(uniq)) / float64(n)
	}
	if sampleN > 0 {
		c.NumericRatio = float64(numericHits) / float64(sampleN)
		c.PriceRatio = float64(priceHits) / float64(sampleN)
		c.AvgLenSample = totalLen / float64(sampleN)
	}
	return c
}

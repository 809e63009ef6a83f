// Package schema canonicalizes column names and coerces column types for
// heterogeneous listing exports.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"movora/internal/table"
)

// ErrNameCollision is returned in strict mode when two raw column names
// canonicalize to the same name.
var ErrNameCollision = errors.New("column name collision")

// Options controls Normalize.
type Options struct {
	// Strict turns name collisions into an error instead of a warning.
	Strict bool
	// NumericColumns are coerced even when some cells fail to parse.
	// Matched by canonical name.
	NumericColumns []string
}

// Collision records raw names that canonicalized to the same name and the
// names they were finally given.
type Collision struct {
	Canonical string
	Raw       []string
	Assigned  []string
}

// Report describes what Normalize did.
type Report struct {
	Renamed          map[string]string
	Collisions       []Collision
	NumericColumns   []string
	CoercionFailures map[string]int
}

// CanonicalName trims and lowercases raw, drops every rune that is neither
// a word character nor whitespace, and joins the remaining words with "_".
func CanonicalName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), "_")
}

// Normalize returns a copy of ds with canonical column names and numeric
// columns coerced to numbers. Cells that fail coercion become Missing.
func Normalize(ds *table.Dataset, opts Options) (*table.Dataset, Report, error) {
	rep := Report{
		Renamed:          make(map[string]string, len(ds.Columns)),
		CoercionFailures: map[string]int{},
	}
	names, collisions := canonicalColumns(ds.Columns)
	if len(collisions) > 0 && opts.Strict {
		c := collisions[0]
		return nil, rep, fmt.Errorf("%w: %q all map to %q", ErrNameCollision, c.Raw, c.Canonical)
	}
	rep.Collisions = collisions

	out := table.New(ds.Name, names)
	out.Rows = make([]table.Record, len(ds.Rows))
	for i, r := range ds.Rows {
		row := make(table.Record, len(r))
		for j, raw := range ds.Columns {
			if v, ok := r[raw]; ok {
				row[names[j]] = v
			}
		}
		out.Rows[i] = row
	}
	for j, raw := range ds.Columns {
		rep.Renamed[raw] = names[j]
	}

	designated := make(map[string]bool, len(opts.NumericColumns))
	for _, c := range opts.NumericColumns {
		designated[CanonicalName(c)] = true
	}
	for _, col := range out.Columns {
		if !designated[col] && !IsNumeric(out, col) {
			continue
		}
		if failed := Coerce(out, col); failed > 0 {
			rep.CoercionFailures[col] = failed
		}
		rep.NumericColumns = append(rep.NumericColumns, col)
	}
	return out, rep, nil
}

// Lookup finds the column of ds whose canonical name equals the canonical
// form of name.
func Lookup(ds *table.Dataset, name string) (string, bool) {
	want := CanonicalName(name)
	for _, c := range ds.Columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range ds.Columns {
		if CanonicalName(c) == want {
			return c, true
		}
	}
	return "", false
}

// IsNumeric reports whether every non-missing cell of col is a number or
// numeric text. A column with no values counts as numeric.
func IsNumeric(ds *table.Dataset, col string) bool {
	for _, r := range ds.Rows {
		v := r[col]
		if v.IsMissing() || v.IsNumber() {
			continue
		}
		if _, ok := v.Float(); !ok {
			return false
		}
	}
	return true
}

// Coerce turns every cell of col into a number in place. Cells that do not
// parse become Missing; the count of such cells is returned.
func Coerce(ds *table.Dataset, col string) int {
	failed := 0
	for i, r := range ds.Rows {
		v := r[col]
		if v.IsMissing() || v.IsNumber() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			failed++
			ds.Set(i, col, table.Missing)
			continue
		}
		ds.Set(i, col, table.Number(f))
	}
	return failed
}

// Median returns the median of the non-missing numeric cells of col. It
// reports false when the column has no numeric values.
func Median(ds *table.Dataset, col string) (float64, bool) {
	var nums []float64
	for _, r := range ds.Rows {
		if f, ok := r[col].Float(); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return nums[mid], true
	}
	return (nums[mid-1] + nums[mid]) / 2, true
}

// FillMedian replaces Missing cells of col with the column median. An
// entirely missing column is left unchanged and reports ok=false.
func FillMedian(ds *table.Dataset, col string) (filled int, ok bool) {
	m, ok := Median(ds, col)
	if !ok {
		return 0, false
	}
	for i, r := range ds.Rows {
		if r[col].IsMissing() {
			ds.Set(i, col, table.Number(m))
			filled++
		}
	}
	return filled, true
}

func canonicalColumns(raw []string) ([]string, []Collision) {
	names := make([]string, len(raw))
	groups := map[string][]int{}
	var order []string
	for i, c := range raw {
		n := CanonicalName(c)
		if n == "" {
			n = "column_" + strconv.Itoa(i)
		}
		names[i] = n
		if _, ok := groups[n]; !ok {
			order = append(order, n)
		}
		groups[n] = append(groups[n], i)
	}

	taken := make(map[string]struct{}, len(names))
	for _, n := range names {
		taken[n] = struct{}{}
	}
	var collisions []Collision
	for _, n := range order {
		idx := groups[n]
		if len(idx) < 2 {
			continue
		}
		c := Collision{Canonical: n}
		for k, i := range idx {
			c.Raw = append(c.Raw, raw[i])
			if k > 0 {
				suffix := k + 1
				for {
					candidate := n + "_" + strconv.Itoa(suffix)
					if _, used := taken[candidate]; !used {
						taken[candidate] = struct{}{}
						names[i] = candidate
						break
					}
					suffix++
				}
			}
			c.Assigned = append(c.Assigned, names[i])
		}
		collisions = append(collisions, c)
	}
	return names, collisions
}

package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movora/internal/table"
)

func dataset(name string, cols []string, rows ...[]table.Value) *table.Dataset {
	ds := table.New(name, cols)
	for _, vals := range rows {
		r := table.Record{}
		for i, c := range cols {
			r[c] = vals[i]
		}
		ds.Append(r)
	}
	return ds
}

func n(f float64) table.Value { return table.Number(f) }
func s(v string) table.Value  { return table.Text(v) }

func TestMergeIntersectsAndDedupes(t *testing.T) {
	a := dataset("a", []string{"a", "b", "c"},
		[]table.Value{n(1), s("x"), n(10)},
		[]table.Value{n(2), s("y"), n(20)},
		[]table.Value{n(3), s("x"), n(10)},
	)
	b := dataset("b", []string{"d", "c", "b"},
		[]table.Value{s("q"), n(10), s("x")},
		[]table.Value{s("r"), n(30), s("z")},
		[]table.Value{s("s"), n(30), s("z")},
	)

	out, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, out.Columns)
	assert.LessOrEqual(t, out.Len(), a.Len()+b.Len())

	var got [][2]string
	for i := range out.Rows {
		got = append(got, [2]string{out.Get(i, "b").String(), out.Get(i, "c").String()})
	}
	assert.Equal(t, [][2]string{{"x", "10.0"}, {"y", "20.0"}, {"z", "30.0"}}, got)

	seen := map[string]bool{}
	for i := range out.Rows {
		key := out.RowKey(i, out.Columns)
		assert.False(t, seen[key], "duplicate row %d", i)
		seen[key] = true
	}
}

func TestMergeColumnOrderIsDeterministic(t *testing.T) {
	a := table.New("a", []string{"zeta", "alpha", "mid", "only_a"})
	b := table.New("b", []string{"mid", "zeta", "alpha", "only_b"})
	for i := 0; i < 20; i++ {
		out, err := Merge(a, b)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, out.Columns)
	}
}

func TestMergeDistinguishesKinds(t *testing.T) {
	a := dataset("a", []string{"v"}, []table.Value{n(1)})
	b := dataset("b", []string{"v"}, []table.Value{s("1")}, []table.Value{table.Missing}, []table.Value{table.Missing})
	out, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestMergeNoCommonColumns(t *testing.T) {
	a := table.New("a", []string{"x"})
	b := table.New("b", []string{"y"})
	_, err := Merge(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCommonColumns))
}

func TestMergeAll(t *testing.T) {
	a := dataset("a", []string{"k", "v", "a_only"}, []table.Value{s("1"), n(1), n(0)}, []table.Value{s("1"), n(1), n(0)})
	b := dataset("b", []string{"k", "v", "b_only"}, []table.Value{s("2"), n(2), n(0)})
	c := dataset("c", []string{"v", "k"}, []table.Value{n(1), s("1")}, []table.Value{n(3), s("3")})

	out, err := MergeAll(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, out.Columns)
	assert.Equal(t, 3, out.Len())

	single, err := MergeAll(a)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Len())
	assert.Equal(t, 2, a.Len())

	_, err = MergeAll()
	assert.Error(t, err)
}

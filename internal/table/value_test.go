package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-0.5, "-0.5"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{69.98, "69.98"},
		{1e16, "1e+16"},
		{1.5e-5, "1.5e-05"},
		{0.0001, "0.0001"},
		{123456789, "123456789.0"},
		{-0.5345224838248488, "-0.5345224838248488"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatNumber(tc.in), "FormatNumber(%v)", tc.in)
	}
}

func TestParseNumber(t *testing.T) {
	for _, s := range []string{"1", " 2.5 ", "-3", "+4.", ".5", "1e3", "2E-2"} {
		_, ok := ParseNumber(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "abc", "inf", "NaN", "0x10", "1,000", "1e999", "1.2.3"} {
		_, ok := ParseNumber(s)
		assert.False(t, ok, s)
	}
}

func TestValueKinds(t *testing.T) {
	assert.True(t, Number(math.NaN()).IsMissing())
	assert.True(t, Number(math.Inf(1)).IsMissing())
	assert.True(t, Value{}.IsMissing())
	assert.Equal(t, "", Missing.String())

	f, ok := Text(" 12.5").Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)
	_, ok = Text("Petrol").Float()
	assert.False(t, ok)

	assert.False(t, Number(1).Equal(Text("1")))
	assert.NotEqual(t, Number(1).Key(), Text("1").Key())
	assert.True(t, Number(2).Equal(Number(2)))
	assert.True(t, Missing.Equal(Value{}))
	assert.Equal(t, "number", Number(1).Kind().String())
}

func TestIsMissingMarker(t *testing.T) {
	for _, s := range []string{"", "  ", "NA", "N/A", "nan", "NULL", "None", "-"} {
		assert.True(t, IsMissingMarker(s), "%q", s)
	}
	for _, s := range []string{"0", "none", "Petrol", "--"} {
		assert.False(t, IsMissingMarker(s), "%q", s)
	}
}

// Package price converts Indian-notation price text ("69.98 Lakh",
// "1.2 Crore") into a numeric value in Lakhs and renders it back.
package price

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the ambient unit of plain numeric price text.
type Unit string

const (
	UnitLakh  Unit = "lakh"
	UnitRupee Unit = "rupee"
)

var (
	lakhsPerCrore = decimal.NewFromInt(100)
	rupeesPerLakh = decimal.NewFromInt(100000)

	reUnitAmount = regexp.MustCompile(`(?i)^([+-]?(?:\d+\.?\d*|\.\d+))\s*(lakhs?|lacs?|crores?|cr)\b`)
	rePlain      = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

	currencyMarks = []string{"₹", "INR", "Rs.", "Rs", "rs.", "rs"}
)

// Parse returns the numeric value of s and true, or false when s is not a
// price. Plain numbers are returned as-is (ambient unit), "<n> Lakh" is n,
// "<n> Crore" is n*100. Negative numbers pass through unchanged.
func Parse(s string) (float64, bool) {
	s = clean(s)
	if s == "" {
		return 0, false
	}
	if rePlain.MatchString(s) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		f := d.InexactFloat64()
		if math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	m := reUnitAmount.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, false
	}
	if isCrore(m[2]) {
		d = d.Mul(lakhsPerCrore)
	}
	return d.InexactFloat64(), true
}

// ParsePtr is Parse for an optional input; nil is undefined.
func ParsePtr(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return Parse(*s)
}

// ToLakh converts a plain numeric value expressed in unit into Lakhs.
func ToLakh(v float64, unit Unit) float64 {
	if unit != UnitRupee {
		return v
	}
	return decimal.NewFromFloat(v).Div(rupeesPerLakh).InexactFloat64()
}

// ParseIn parses s and, when s is a plain number, converts it from unit to
// Lakhs. Unit-suffixed text is already in Lakhs after Parse.
func ParseIn(s string, unit Unit) (float64, bool) {
	v, ok := Parse(s)
	if !ok {
		return 0, false
	}
	if rePlain.MatchString(clean(s)) {
		return ToLakh(v, unit), true
	}
	return v, true
}

// Format renders a Lakh value for display: 100 Lakh and above as Crore,
// everything else as Lakh, both with two decimals. NaN and infinities have no
// display and render as "".
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	d := decimal.NewFromFloat(v)
	if d.GreaterThanOrEqual(lakhsPerCrore) {
		return fmt.Sprintf("%s Crore", d.Div(lakhsPerCrore).StringFixed(2))
	}
	return fmt.Sprintf("%s Lakh", d.StringFixed(2))
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	for _, mark := range currencyMarks {
		if strings.HasPrefix(s, mark) {
			s = strings.TrimPrefix(s, mark)
			break
		}
	}
	s = strings.ReplaceAll(s, "₹", "")
	return strings.TrimSpace(s)
}

func isCrore(unit string) bool {
	return strings.HasPrefix(strings.ToLower(unit), "cr")
}

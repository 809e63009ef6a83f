package table

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// Value is one cell: a number, a text, or the explicit missing marker.
// The zero Value is Missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing is the explicit "no value" marker.
var Missing = Value{}

var reNumeric = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// Number wraps f. NaN and infinities become Missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps s as-is.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }

// Float returns the numeric content of v. Text cells that hold a plain
// decimal number are parsed; anything else reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return ParseNumber(v.text)
	default:
		return 0, false
	}
}

// String renders v the way it is written to CSV: Missing is empty and
// numbers use Python's float text so exports match pandas output.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether v and o have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	default:
		return true
	}
}

// Key is a kind-tagged rendering used to compare rows.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return "t:" + v.text
	default:
		return "m:"
	}
}

// ParseNumber parses a plain decimal number (optional sign and exponent).
// Hex floats, "inf" and "nan" are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !reNumeric.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatNumber matches Python's repr of a float: integral values keep a
// trailing ".0" and exponent notation is used only outside [1e-4, 1e16).
func FormatNumber(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	var s string
	if abs >= 1e-4 && abs < 1e16 {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		return s + ".0"
	}
	return s
}

var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"-":    {},
}

// IsMissingMarker reports whether a raw CSV cell means "no value".
func IsMissingMarker(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

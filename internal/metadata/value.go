package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which case of Value is populated
type Kind uint8

const (
	KindNone Kind = iota
	KindInteger
	KindReal
	KindText
	KindRational
)

// Value is a raw EXIF tag value. The zero Value holds nothing and is
// treated the same as a missing tag.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	num  int64
	den  int64
}

// Integer returns an integer tag value
func Integer(v int64) Value {
	return Value{kind: KindInteger, i: v}
}

// Real returns a plain decimal tag value
func Real(v float64) Value {
	return Value{kind: KindReal, f: v}
}

// Text returns a string tag value
func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

// Rational returns a (numerator, denominator) tag value
func Rational(num, den int64) Value {
	return Value{kind: KindRational, num: num, den: den}
}

// Kind returns the populated case
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the integer case
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// Float returns the plain decimal case
func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindReal
}

// Text returns the string case
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindText
}

// Rat returns the rational case
func (v Value) Rat() (num, den int64, ok bool) {
	return v.num, v.den, v.kind == KindRational
}

// String renders the value as-is, without any unit conversion.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return formatReal(v.f)
	case KindText:
		return v.s
	case KindRational:
		return fmt.Sprintf("%d/%d", v.num, v.den)
	default:
		return ""
	}
}

// Tags maps resolved EXIF tag names (Make, FNumber, ...) to raw values.
// A tag that was not embedded in the image has no key.
type Tags map[string]Value

// Lookup returns the value stored for name. A zero Value counts as missing.
func (t Tags) Lookup(name string) (Value, bool) {
	v, ok := t[name]
	if !ok || v.kind == KindNone {
		return Value{}, false
	}
	return v, true
}

// formatReal renders a float with shortest round-trip digits, keeping a
// trailing ".0" for whole numbers and switching to exponent form for very
// small or very large magnitudes.
func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if f != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

package cif

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindText          Kind = iota // free text
	KindNumeric                   // number, optionally with a standard uncertainty
	KindUnknown                   // ?
	KindNotApplicable             // .
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindUnknown:
		return "unknown"
	case KindNotApplicable:
		return "not_applicable"
	default:
		return "invalid"
	}
}

// Value is a classified CIF data value. Values are comparable: two values
// are equal when they hold the same variant and the same payload.
type Value struct {
	kind Kind
	text string  // Text content
	num  float64 // Numeric mantissa
	su   string  // Numeric standard uncertainty digits, without parentheses
}

// TextValue returns a Text value.
func TextValue(s string) Value {
	return Value{kind: KindText, text: s}
}

// NumericValue returns a Numeric value. su holds the digits of the standard
// uncertainty and may be empty.
func NumericValue(f float64, su string) Value {
	return Value{kind: KindNumeric, num: f, su: su}
}

// Unknown returns the value written as ? in CIF.
func Unknown() Value {
	return Value{kind: KindUnknown}
}

// NotApplicable returns the value written as . in CIF.
func NotApplicable() Value {
	return Value{kind: KindNotApplicable}
}

// Classify maps a raw unquoted token to a Value. It never fails: anything
// that is not ?, . or a number is Text.
func Classify(raw string) Value {
	switch raw {
	case "?":
		return Unknown()
	case ".":
		return NotApplicable()
	}
	if f, su, ok := parseNumber(raw); ok {
		return NumericValue(f, su)
	}
	return TextValue(raw)
}

// parseNumber recognizes [+-]digits[.digits][(e|E)[+-]digits][(digits)].
// At least one mantissa digit is required on either side of the point.
func parseNumber(s string) (float64, string, bool) {
	mantissa, su := s, ""
	if strings.HasSuffix(s, ")") {
		open := strings.LastIndexByte(s, '(')
		if open < 0 {
			return 0, "", false
		}
		su = s[open+1 : len(s)-1]
		if su == "" || !allDigits(su) {
			return 0, "", false
		}
		mantissa = s[:open]
	}

	if !isNumberLiteral(mantissa) {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(mantissa, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, "", false
	}
	return f, su, true
}

func isNumberLiteral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}

	return i == len(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsText reports whether v is a Text value.
func (v Value) IsText() bool { return v.kind == KindText }

// IsNumeric reports whether v is a Numeric value.
func (v Value) IsNumeric() bool { return v.kind == KindNumeric }

// IsUnknown reports whether v is the unknown value ?.
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

// IsNotApplicable reports whether v is the not-applicable value ..
func (v Value) IsNotApplicable() bool { return v.kind == KindNotApplicable }

// Text returns the content of a Text value.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Float returns the mantissa of a Numeric value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumeric {
		return 0, false
	}
	return v.num, true
}

// Uncertainty returns the standard uncertainty digits of a Numeric value,
// e.g. "5" for 1.234(5). ok is false when v is not numeric or carries no
// uncertainty.
func (v Value) Uncertainty() (string, bool) {
	if v.kind != KindNumeric || v.su == "" {
		return "", false
	}
	return v.su, true
}

// Equal reports whether v and o hold the same variant and payload.
// Mantissas are compared bit for bit, so -0 and 0 differ here while v == o
// treats them as equal.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind &&
		v.text == o.text &&
		math.Float64bits(v.num) == math.Float64bits(o.num) &&
		v.su == o.su
}

// TypeName returns the variant name: "text", "numeric", "unknown" or
// "not_applicable".
func (v Value) TypeName() string {
	return v.kind.String()
}

// Interface converts v to a plain Go value: string for Text, float64 for
// Numeric and nil for Unknown and NotApplicable.
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumeric:
		return v.num
	default:
		return nil
	}
}

// String renders v the way it would appear as an unquoted CIF token.
func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		s := strconv.FormatFloat(v.num, 'g', -1, 64)
		if v.su != "" {
			s += "(" + v.su + ")"
		}
		return s
	case KindUnknown:
		return "?"
	case KindNotApplicable:
		return "."
	default:
		return v.text
	}
}

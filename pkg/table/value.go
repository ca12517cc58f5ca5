package table

import (
	"cmp"
	"strconv"
	"strings"
)

// Value is one cell. Raw holds the text exactly as read and is what keys
// and output are built from; Int, Float and Str are the typed reading used
// for validation and ordering. A null Value has Null set and its Kind
// records the column type it belongs to.
type Value struct {
	Kind  ColumnType
	Raw   string
	Int   int64
	Float float64
	Str   string
	Null  bool
}

// NullValue returns a null value of the given kind.
func NullValue(kind ColumnType) Value {
	return Value{Kind: kind, Null: true}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{Kind: TypeString, Raw: s, Str: s}
}

// IntValue returns an integer value.
func IntValue(i int64) Value {
	return Value{Kind: TypeInteger, Raw: strconv.FormatInt(i, 10), Int: i}
}

// FloatValue returns a float value.
func FloatValue(f float64) Value {
	return Value{Kind: TypeFloat, Raw: strconv.FormatFloat(f, 'f', -1, 64), Float: f}
}

// ParseValue parses raw cell text as kind. Empty text yields a null value.
// Numeric cells tolerate surrounding spaces when parsed, but Raw keeps
// the text untouched so "02134" and "2134" stay distinct.
func ParseValue(kind ColumnType, raw string) (Value, error) {
	if raw == "" {
		return NullValue(kind), nil
	}
	v := Value{Kind: kind, Raw: raw}
	switch kind {
	case TypeInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, err
		}
		v.Int = i
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, err
		}
		v.Float = f
	default:
		v.Str = raw
	}
	return v, nil
}

// String returns the cell text the value was read from. Null is the empty
// string.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	return v.Raw
}

// IsEmpty reports whether the value is null or an empty string.
func (v Value) IsEmpty() bool {
	return v.Null || v.Raw == ""
}

// Equal reports whether two values have the same kind and the same text.
// "1.50" and "1.5" are different values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Null != o.Null {
		return false
	}
	return v.Null || v.Raw == o.Raw
}

// Compare orders values: nulls first, then numerically for integer and
// float, lexically for strings. Values of different kinds compare by
// their text. Numerically equal cells fall back to their text so the
// order is total.
func (v Value) Compare(o Value) int {
	switch {
	case v.Null && o.Null:
		return 0
	case v.Null:
		return -1
	case o.Null:
		return 1
	}
	if v.Kind != o.Kind {
		return strings.Compare(v.Raw, o.Raw)
	}
	var c int
	switch v.Kind {
	case TypeInteger:
		c = cmp.Compare(v.Int, o.Int)
	case TypeFloat:
		c = cmp.Compare(v.Float, o.Float)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(v.Raw, o.Raw)
}

package sifacc

import (
	"fmt"
	"strings"
)

// Kind identifies the type of data held by a Value
type Kind uint8

const (
	// KindInvalid is the Kind of the zero Value
	KindInvalid Kind = iota
	// KindInt64 indicates a signed 64-bit integer Value
	KindInt64
	// KindFloat64 indicates a 64-bit floating-point Value
	KindFloat64
	// KindString indicates a string Value
	KindString
	// KindList indicates a Value which is a list of other Values
	KindList
)

// String returns a textual representation of this Kind
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// A Value is an accumulated quantity. Values form a closed set of kinds, and the
// kind is carried alongside the data (including on the wire), so that a receiver
// can always determine how to merge a Value it has never seen before.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	l    []Value
}

// Int64 produces an integer Value
func Int64(v int64) Value {
	return Value{kind: KindInt64, i: v}
}

// Float64 produces a floating-point Value
func Float64(v float64) Value {
	return Value{kind: KindFloat64, f: v}
}

// String produces a string Value
func String(v string) Value {
	return Value{kind: KindString, s: v}
}

// List produces a list Value. The provided slice is copied.
func List(vs ...Value) Value {
	l := make([]Value, len(vs))
	copy(l, vs)
	return Value{kind: KindList, l: l}
}

// Kind returns the Kind of this Value
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid returns false for the zero Value
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// AsInt64 returns the integer held by this Value, if it is a KindInt64
func (v Value) AsInt64() (int64, bool) {
	return v.i, v.kind == KindInt64
}

// AsFloat64 returns the float held by this Value, if it is a KindFloat64
func (v Value) AsFloat64() (float64, bool) {
	return v.f, v.kind == KindFloat64
}

// AsString returns the string held by this Value, if it is a KindString
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsList returns a copy of the elements held by this Value, if it is a KindList
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	l := make([]Value, len(v.l))
	copy(l, v.l)
	return l, true
}

// Len returns the number of elements in a list Value, and 0 for all other kinds
func (v Value) Len() int {
	return len(v.l)
}

// Equal returns true iff both Values have the same kind and the same contents
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt64:
		return v.i == o.i
	case KindFloat64:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String returns a textual representation of this Value
func (v Value) String() string {
	switch v.kind {
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindList:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

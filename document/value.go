// Package document provides the structured value model exchanged between row
// sources, the modification pipeline and the storage gateway.
//
// A Value is self-describing: it is one of none, null, bool, number, string,
// array or object. "None" is distinct from null and marks an absent value
// (an unset register, a missing attribute, an output that was not requested).
// Integral JSON numbers that fit in int64 are kept exactly; other numbers
// are float64.
package document

import (
	"sort"
)

// Type identifies the shape of a Value.
type Type uint8

const (
	TypeNone Type = iota
	TypeNull
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	}
	return "unknown"
}

// System attribute names.
const (
	KeyAttribute = "_key"
	RevAttribute = "_rev"
	IDAttribute  = "_id"
)

// Value is an immutable-by-convention structured value. Objects and arrays
// share their backing storage on copy; use Clone before mutating a value that
// did not originate in the caller.
type Value struct {
	typ Type
	b   bool
	n   float64
	s   string
	arr []Value
	obj map[string]Value

	// i holds integral numbers exactly when exact is set; n mirrors it.
	i     int64
	exact bool
}

// None returns the absent value.
func None() Value { return Value{} }

// Null returns the null value.
func Null() Value { return Value{typ: TypeNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{typ: TypeNumber, n: n} }

// Int returns a numeric value that keeps all 64 bits of i.
func Int(i int64) Value { return Value{typ: TypeNumber, n: float64(i), i: i, exact: true} }

// String returns a string value.
func String(s string) Value { return Value{typ: TypeString, s: s} }

// Array returns an array holding items.
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	copy(arr, items)
	return Value{typ: TypeArray, arr: arr}
}

// Object returns an object holding fields. Fields whose value is None are dropped.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		if v.typ == TypeNone {
			continue
		}
		obj[k] = v
	}
	return Value{typ: TypeObject, obj: obj}
}

// NewObject returns an empty object ready for Set.
func NewObject() Value {
	return Value{typ: TypeObject, obj: make(map[string]Value)}
}

func (v Value) Type() Type      { return v.typ }
func (v Value) IsNone() bool    { return v.typ == TypeNone }
func (v Value) IsNull() bool    { return v.typ == TypeNull }
func (v Value) IsBool() bool    { return v.typ == TypeBool }
func (v Value) IsNumber() bool  { return v.typ == TypeNumber }
func (v Value) IsString() bool  { return v.typ == TypeString }
func (v Value) IsArray() bool   { return v.typ == TypeArray }
func (v Value) IsObject() bool  { return v.typ == TypeObject }
func (v Value) BoolValue() bool { return v.b }

// NumberValue returns the numeric payload, or 0 for non-numbers.
func (v Value) NumberValue() float64 { return v.n }

// IntValue returns the exact integer payload. ok is false for non-numbers
// and for numbers that did not originate as integers.
func (v Value) IntValue() (i int64, ok bool) { return v.i, v.exact }

// StringValue returns the string payload, or "" for non-strings.
func (v Value) StringValue() string { return v.s }

// Len returns the number of array items or object fields.
func (v Value) Len() int {
	switch v.typ {
	case TypeArray:
		return len(v.arr)
	case TypeObject:
		return len(v.obj)
	}
	return 0
}

// At returns the i-th array item, or None when out of range.
func (v Value) At(i int) Value {
	if v.typ != TypeArray || i < 0 || i >= len(v.arr) {
		return None()
	}
	return v.arr[i]
}

// Get returns the named field of an object, or None.
func (v Value) Get(name string) Value {
	if v.typ != TypeObject {
		return None()
	}
	return v.obj[name]
}

// Has reports whether an object carries the named field.
func (v Value) Has(name string) bool {
	if v.typ != TypeObject {
		return false
	}
	_, ok := v.obj[name]
	return ok
}

// Set stores a field in place. Setting None removes the field. Set is a no-op
// on non-objects.
func (v Value) Set(name string, field Value) {
	if v.typ != TypeObject {
		return
	}
	if field.typ == TypeNone {
		delete(v.obj, name)
		return
	}
	v.obj[name] = field
}

// Delete removes a field in place.
func (v Value) Delete(name string) {
	if v.typ == TypeObject {
		delete(v.obj, name)
	}
}

// Keys returns the object's field names in sorted order.
func (v Value) Keys() []string {
	if v.typ != TypeObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeArray:
		arr := make([]Value, len(v.arr))
		for i, item := range v.arr {
			arr[i] = item.Clone()
		}
		return Value{typ: TypeArray, arr: arr}
	case TypeObject:
		obj := make(map[string]Value, len(v.obj))
		for k, item := range v.obj {
			obj[k] = item.Clone()
		}
		return Value{typ: TypeObject, obj: obj}
	}
	return v
}

// Without returns a shallow copy of an object minus the named fields.
func (v Value) Without(names ...string) Value {
	if v.typ != TypeObject {
		return v
	}
	out := make(map[string]Value, len(v.obj))
	for k, item := range v.obj {
		out[k] = item
	}
	for _, name := range names {
		delete(out, name)
	}
	return Value{typ: TypeObject, obj: out}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNone, TypeNull:
		return true
	case TypeBool:
		return v.b == o.b
	case TypeNumber:
		if v.exact && o.exact {
			return v.i == o.i
		}
		return v.n == o.n
	case TypeString:
		return v.s == o.s
	case TypeArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case TypeObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, item := range v.obj {
			other, ok := o.obj[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/teranos/modx/errors"
)

// Parse decodes a JSON text into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return None(), errors.Wrap(err, "failed to parse document")
	}
	return FromGo(raw)
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(text string) Value {
	v, err := Parse([]byte(text))
	if err != nil {
		panic(err)
	}
	return v
}

// FromGo converts decoded JSON/YAML data into a Value.
func FromGo(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return Int(i), nil
		}
		n, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return None(), errors.Wrapf(err, "invalid number %q", string(x))
		}
		return Number(n), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		if x <= math.MaxInt64 {
			return Int(int64(x)), nil
		}
		return Number(float64(x)), nil
	case []interface{}:
		arr := make([]Value, len(x))
		for i, item := range x {
			v, err := FromGo(item)
			if err != nil {
				return None(), err
			}
			arr[i] = v
		}
		return Value{typ: TypeArray, arr: arr}, nil
	case map[string]interface{}:
		obj := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := FromGo(item)
			if err != nil {
				return None(), err
			}
			obj[k] = v
		}
		return Value{typ: TypeObject, obj: obj}, nil
	case map[interface{}]interface{}:
		obj := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := FromGo(item)
			if err != nil {
				return None(), err
			}
			obj[fmt.Sprint(k)] = v
		}
		return Value{typ: TypeObject, obj: obj}, nil
	}
	return None(), errors.Newf("unsupported value type %T", raw)
}

// ToGo converts a Value into plain Go data (maps, slices, scalars).
// None converts to nil.
func (v Value) ToGo() interface{} {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeNumber:
		if v.exact {
			return v.i
		}
		return v.n
	case TypeString:
		return v.s
	case TypeArray:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.ToGo()
		}
		return out
	case TypeObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.ToGo()
		}
		return out
	}
	return nil
}

// MarshalJSON encodes the value. Object fields are emitted in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToGo())
}

// UnmarshalJSON decodes a JSON text into the value.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String renders the value as compact JSON, or "none".
func (v Value) String() string {
	if v.typ == TypeNone {
		return "none"
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.typ, err)
	}
	return string(data)
}

package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing constrained value types.
// Only Str, Int, Bool, Arr, and Obj implement it.
// There is no float variant - floats break deterministic hashing.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Str represents a string value.
type Str string

func (Str) value() {}

// Int represents an integer value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Arr represents an array of values.
type Arr []Value

func (Arr) value() {}

// Obj represents a map of string keys to values.
// Use SortedKeys for deterministic iteration.
type Obj map[string]Value

func (Obj) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a DIFFERENT order for keys
// outside the basic multilingual plane.
func (o Obj) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. Surrogate pairs make this differ from plain string comparison.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalValue deserializes JSON into a Value with strict validation.
// Rejects floats and null - only string/int/bool/array/object are allowed.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return toValue(raw)
}

// toValue recursively converts a decoded JSON value to a Value.
func toValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden: only string, int, bool, array, object allowed")
	case bool:
		return Bool(val), nil
	case string:
		return Str(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case []any:
		arr := make(Arr, len(val))
		for i, elem := range val {
			conv, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Obj, len(val))
		for k, elem := range val {
			conv, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// GetStr looks up a string field. Returns "" when absent or wrong type.
func (o Obj) GetStr(key string) string {
	if s, ok := o[key].(Str); ok {
		return string(s)
	}
	return ""
}

// GetInt looks up an integer field. Returns 0 when absent or wrong type.
func (o Obj) GetInt(key string) int64 {
	if n, ok := o[key].(Int); ok {
		return int64(n)
	}
	return 0
}

// GetBool looks up a boolean field. Returns false when absent or wrong type.
func (o Obj) GetBool(key string) bool {
	if b, ok := o[key].(Bool); ok {
		return bool(b)
	}
	return false
}

// GetObj looks up a nested object field. Returns nil when absent.
func (o Obj) GetObj(key string) Obj {
	if obj, ok := o[key].(Obj); ok {
		return obj
	}
	return nil
}

// GetArr looks up an array field. Returns nil when absent.
func (o Obj) GetArr(key string) Arr {
	if arr, ok := o[key].(Arr); ok {
		return arr
	}
	return nil
}

// GetKey looks up and parses a key-valued string field.
func (o Obj) GetKey(key string) (Key, error) {
	s, ok := o[key].(Str)
	if !ok {
		return ZeroKey, fmt.Errorf("field %q: missing key", key)
	}
	return ParseKey(string(s))
}

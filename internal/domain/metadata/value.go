// Package metadata models the open tool metadata field as a tagged value tree.
// The schema is consumer-defined and opaque to the search core, so values are
// kept serialization-agnostic instead of being bound to a fixed struct.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the value variants.
type Kind int

const (
	// Null is the absent value (zero Value).
	Null Kind = iota
	// String is a text value.
	String
	// Number is a float64 value.
	Number
	// Bool is a boolean value.
	Bool
	// List is an ordered sequence of values.
	List
	// Map is a string-keyed mapping of values.
	Map
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged metadata value. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// NewString creates a string value.
func NewString(s string) Value { return Value{kind: String, str: s} }

// NewNumber creates a number value.
func NewNumber(f float64) Value { return Value{kind: Number, num: f} }

// NewBool creates a boolean value.
func NewBool(v bool) Value { return Value{kind: Bool, b: v} }

// NewList creates a list value.
func NewList(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: List, list: cp}
}

// NewMap creates a map value.
func NewMap(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: Map, m: cp}
}

// Kind returns the value variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.kind == Null }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == String }

// Num returns the number payload; ok is false for other kinds.
func (v Value) Num() (float64, bool) { return v.num, v.kind == Number }

// Boolean returns the bool payload; ok is false for other kinds.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == Bool }

// Items returns the list payload; ok is false for other kinds.
func (v Value) Items() ([]Value, bool) {
	if v.kind != List {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Fields returns the map payload; ok is false for other kinds.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != Map {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		cp[k] = val
	}
	return cp, true
}

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case String:
		return v.str == other.str
	case Number:
		return v.num == other.num
	case Bool:
		return v.b == other.b
	case List:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, val := range v.m {
			ov, ok := other.m[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(v.str)
	case Number:
		return json.Marshal(v.num)
	case Bool:
		return json.Marshal(v.b)
	case List:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case Map:
		// Deterministic key order for stable row payloads
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, fmt.Errorf("marshal metadata key: %w", err)
			}
			vb, err := json.Marshal(v.m[k])
			if err != nil {
				return nil, fmt.Errorf("marshal metadata field %q: %w", k, err)
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, vb...)
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("unknown metadata kind %d", v.kind)
	}
}

// UnmarshalJSON decodes plain JSON into a tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts a decoded JSON value (string/json.Number/float64/bool/
// []any/map[string]any/nil) into a tagged Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case float64:
		return NewNumber(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("metadata number %q: %w", t.String(), err)
		}
		return NewNumber(f), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			parsed, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = parsed
		}
		return Value{kind: List, list: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			parsed, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = parsed
		}
		return Value{kind: Map, m: fields}, nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata type %T", raw)
	}
}

// Package model defines the property-graph data model: the open-ended
// property value type, and the Node and Relationship entities built on
// top of it.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the concrete shape stored in a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// MaxNestingDepth bounds how deep a Map/List value may recurse, matching
// the "bounded depth" requirement of the data model invariants.
const MaxNestingDepth = 8

// Value is a sum type over the dynamic values a node or relationship
// property can hold: scalar, string, number, boolean, null, homogeneous
// or heterogeneous lists, and nested maps. It round-trips through JSON
// as its canonical wire format.
type Value struct {
	Kind ValueKind
	B    bool
	N    float64
	S    string
	L    []Value
	M    map[string]Value
}

// Null is the Value representing JSON null.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value      { return Value{Kind: KindBool, B: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, N: n} }
func String(s string) Value  { return Value{Kind: KindString, S: s} }
func List(items ...Value) Value {
	return Value{Kind: KindList, L: items}
}
func Map(m map[string]Value) Value {
	return Value{Kind: KindMap, M: m}
}

// IsNull reports whether the value is JSON null or the zero Value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// MarshalJSON implements the canonical JSON rendering of a Value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.B)
	case KindNumber:
		return json.Marshal(v.N)
	case KindString:
		return json.Marshal(v.S)
	case KindList:
		return json.Marshal(v.L)
	case KindMap:
		return json.Marshal(v.M)
	default:
		return nil, fmt.Errorf("model: unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON reconstructs a Value from arbitrary JSON, bounding
// recursion depth to MaxNestingDepth.
func (v *Value) UnmarshalJSON(data []byte) error {
	return v.unmarshalDepth(data, 0)
}

func (v *Value) unmarshalDepth(data []byte, depth int) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*v = Null
		return nil
	case len(trimmed) > 0 && (trimmed[0] == '"'):
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case len(trimmed) > 0 && (trimmed[0] == 't' || trimmed[0] == 'f'):
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		if depth >= MaxNestingDepth {
			return fmt.Errorf("model: value nesting exceeds max depth %d", MaxNestingDepth)
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		items := make([]Value, len(raw))
		for i, r := range raw {
			if err := items[i].unmarshalDepth(r, depth+1); err != nil {
				return err
			}
		}
		*v = List(items...)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		if depth >= MaxNestingDepth {
			return fmt.Errorf("model: value nesting exceeds max depth %d", MaxNestingDepth)
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		m := make(map[string]Value, len(raw))
		for k, r := range raw {
			var val Value
			if err := val.unmarshalDepth(r, depth+1); err != nil {
				return err
			}
			m[k] = val
		}
		*v = Map(m)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("model: cannot parse value %q: %w", trimmed, err)
		}
		*v = Number(n)
		return nil
	}
}

// Equal reports deep equality between two Values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.B == other.B
	case KindNumber:
		return v.N == other.N
	case KindString:
		return v.S == other.S
	case KindList:
		if len(v.L) != len(other.L) {
			return false
		}
		for i := range v.L {
			if !v.L[i].Equal(other.L[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.M) != len(other.M) {
			return false
		}
		for k, mv := range v.M {
			ov, ok := other.M[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts a plain Go value (as produced by encoding/json
// unmarshaling into interface{}) into a Value.
func FromAny(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return List(items...)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Map(m)
	default:
		return Null
	}
}

// Any renders the Value back into a plain interface{} tree, the inverse
// of FromAny.
func (v Value) Any() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.B
	case KindNumber:
		return v.N
	case KindString:
		return v.S
	case KindList:
		out := make([]interface{}, len(v.L))
		for i, e := range v.L {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.M))
		for k, e := range v.M {
			out[k] = e.Any()
		}
		return out
	}
	return nil
}

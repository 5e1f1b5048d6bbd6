// Package value models a loosely-structured source payload as a tagged tree.
//
// # Overview
//
// Source records arrive as arbitrary JSON. Instead of indexing raw maps the
// mapping layer works on Value, which is always one of:
//
//   - Absent: the node does not exist (a path did not resolve)
//   - Null: the node exists and is JSON null
//   - Bool, Number, String: scalars
//   - Sequence: an ordered list of values
//   - Mapping: string keys to values
//
// Absent and Null are different: a field that is explicitly null in the source
// resolves, a field that is missing does not. The same holds for the empty
// string, which is a resolved value.
//
// # Paths
//
// Resolve walks a dotted path ("variation.base.texts.0.name"). Segments are
// mapping keys or sequence indexes; "texts[0].name" is accepted as well.
// Paths starting with "$" are evaluated as JSONPath expressions.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// Value is an immutable node of a payload tree. The zero Value is Absent.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	s    string
	seq  []Value
	m    map[string]Value
}

func Absent() Value { return Value{} }

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

func Float(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

func Seq(items ...Value) Value {
	return Value{kind: KindSequence, seq: items}
}

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMapping, m: m}
}

// Parse decodes JSON into a Value, keeping numbers exact.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Absent(), fmt.Errorf("failed to parse payload: %w", err)
	}
	return From(raw), nil
}

// From converts decoded Go data into a Value.
func From(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case json.Number:
		return Value{kind: KindNumber, num: v}
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = From(item)
		}
		return Seq(items...)
	case []map[string]any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = From(item)
		}
		return Seq(items...)
	case map[string]any:
		m := make(map[string]Value, len(v))
		for key, item := range v {
			m[key] = From(item)
		}
		return Map(m)
	case map[string]Value:
		return Map(v)
	case []Value:
		return Seq(v...)
	}

	// fall back to a JSON round trip for typed structs and other slices
	data, err := json.Marshal(raw)
	if err != nil {
		return Absent()
	}
	parsed, err := Parse(data)
	if err != nil {
		return Absent()
	}
	return parsed
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Exists is true for every resolved node, including null.
func (v Value) Exists() bool { return v.kind != KindAbsent }

// IsNil is true for absent and null nodes.
func (v Value) IsNil() bool { return v.kind == KindAbsent || v.kind == KindNull }

// IsEmpty follows the source system's notion of "empty": nil, false, zero,
// "", "0", and empty containers.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return !v.b
	case KindNumber:
		f, _ := v.num.Float64()
		return f == 0
	case KindString:
		return v.s == "" || v.s == "0"
	case KindSequence:
		return len(v.seq) == 0
	case KindMapping:
		return len(v.m) == 0
	}
	return true
}

// Get returns the child under key, or Absent.
func (v Value) Get(key string) Value {
	if v.kind != KindMapping {
		return Absent()
	}
	child, ok := v.m[key]
	if !ok {
		return Absent()
	}
	return child
}

// Index returns the i-th element of a sequence, or Absent.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Absent()
	}
	return v.seq[i]
}

// Len is the number of elements of a sequence or keys of a mapping.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	}
	return 0
}

// Items returns the elements of a sequence. Other kinds yield nil.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Keys returns the sorted keys of a mapping.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for key := range v.m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of a mapping with key set to child.
func (v Value) With(key string, child Value) Value {
	m := make(map[string]Value, len(v.m)+1)
	for k, item := range v.m {
		m[k] = item
	}
	m[key] = child
	return Map(m)
}

// AsString converts scalars to their string form.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindNumber:
		return v.num.String(), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	}
	return "", false
}

// AsFloat converts numbers and numeric strings.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber:
		f, err := v.num.Float64()
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsInt converts numbers and numeric strings, truncating fractions.
func (v Value) AsInt() (int64, bool) {
	if v.kind == KindNumber {
		if i, err := v.num.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := v.AsFloat()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// AsBool converts booleans, numbers and the usual string spellings.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindNumber:
		f, _ := v.num.Float64()
		return f != 0, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "1", "true", "yes", "on":
			return true, true
		case "", "0", "false", "no", "off":
			return false, true
		}
	}
	return false, false
}

// Str returns the string form or "".
func (v Value) Str() string {
	s, _ := v.AsString()
	return s
}

// IntOr returns the integer form or def.
func (v Value) IntOr(def int64) int64 {
	if i, ok := v.AsInt(); ok {
		return i
	}
	return def
}

// FloatOr returns the float form or def.
func (v Value) FloatOr(def float64) float64 {
	if f, ok := v.AsFloat(); ok {
		return f
	}
	return def
}

// BoolOr returns the boolean form or def.
func (v Value) BoolOr(def bool) bool {
	if b, ok := v.AsBool(); ok {
		return b
	}
	return def
}

// Native converts the tree back into plain Go data. Integral numbers become
// int64, other numbers float64. Absent becomes nil.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := v.num.Int64(); err == nil {
			return i
		}
		f, _ := v.num.Float64()
		return f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Native()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for key, item := range v.m {
			out[key] = item.Native()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) String() string {
	if v.kind == KindAbsent {
		return "<absent>"
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(data)
}

// Package configlang parses the small indentation-based configuration
// language used by project and spec metadata files.
//
// The grammar is a strict subset of YAML: block mappings, block sequences
// (including sequences of inline objects) and plain, single-quoted or
// double-quoted scalars. Anchors, flow collections, multi-document streams
// and block scalars are not supported.
//
// Parsed documents are represented as a closed sum type: every Value is
// exactly one of Null, Bool, Number, String, *Mapping or Sequence, so
// consumers switch on the concrete type instead of probing generic maps.
package configlang

import (
	"fmt"
	"math"
	"strconv"
)

// ─── Kind enum ───────────────────────────────────────────────────

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMapping
	KindSequence
)

// String returns the lowercase name of the kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ─── Value variants ───────────────────────────────────────────────────

// Value is a node of a parsed configuration document.
// The interface is sealed: only the types in this package implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the absent value (`~`, `null`, or a key with no nested content).
type Null struct{}

// Bool is a `true` / `false` scalar.
type Bool bool

// Number is a decimal scalar such as `42`, `-3` or `1.5`.
type Number float64

// String is any scalar that is not null, boolean or numeric.
type String string

// Sequence is an ordered list of values.
type Sequence []Value

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Sequence) Kind() Kind { return KindSequence }

func (Null) sealed()     {}
func (Bool) sealed()     {}
func (Number) sealed()   {}
func (String) sealed()   {}
func (Sequence) sealed() {}

// Int reports the number as an int when it has no fractional part.
func (n Number) Int() (int, bool) {
	f := float64(n)
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// String formats the number without a trailing ".0" for integral values.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// ─── Mapping ───────────────────────────────────────────────────

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is an insertion-ordered set of unique keys.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

func (*Mapping) Kind() Kind { return KindMapping }
func (*Mapping) sealed()    {}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in document order.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key, replacing an existing entry in place.
// Programmatic construction may overwrite; the parser rejects duplicates
// before calling Set.
func (m *Mapping) Set(key string, value Value) {
	if value == nil {
		value = Null{}
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// ─── Typed accessors ───────────────────────────────────────────────────
//
// Each accessor returns (zero, false, nil) when the key is absent or null,
// and a *TypeError when the key holds a different kind.

// TypeError reports a value of the wrong kind under a mapping key.
type TypeError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Key, e.Want, e.Got)
}

func (m *Mapping) lookup(key string, want Kind) (Value, bool, error) {
	v, ok := m.Get(key)
	if !ok || v.Kind() == KindNull {
		return nil, false, nil
	}
	if v.Kind() != want {
		return nil, false, &TypeError{Key: key, Want: want, Got: v.Kind()}
	}
	return v, true, nil
}

// GetString returns the string stored under key.
func (m *Mapping) GetString(key string) (string, bool, error) {
	v, ok, err := m.lookup(key, KindString)
	if !ok {
		return "", false, err
	}
	return string(v.(String)), true, nil
}

// GetBool returns the boolean stored under key.
func (m *Mapping) GetBool(key string) (bool, bool, error) {
	v, ok, err := m.lookup(key, KindBool)
	if !ok {
		return false, false, err
	}
	return bool(v.(Bool)), true, nil
}

// GetInt returns the integral number stored under key.
func (m *Mapping) GetInt(key string) (int, bool, error) {
	v, ok, err := m.lookup(key, KindNumber)
	if !ok {
		return 0, false, err
	}
	n, isInt := v.(Number).Int()
	if !isInt {
		return 0, false, fmt.Errorf("%s: expected an integer, got %s", key, v.(Number))
	}
	return n, true, nil
}

// GetMapping returns the nested mapping stored under key.
func (m *Mapping) GetMapping(key string) (*Mapping, bool, error) {
	v, ok, err := m.lookup(key, KindMapping)
	if !ok {
		return nil, false, err
	}
	return v.(*Mapping), true, nil
}

// GetStrings returns the sequence stored under key as strings. Scalar items
// are converted with Scalar; nested collections are an error.
func (m *Mapping) GetStrings(key string) ([]string, bool, error) {
	v, ok, err := m.lookup(key, KindSequence)
	if !ok {
		return nil, false, err
	}
	seq := v.(Sequence)
	out := make([]string, 0, len(seq))
	for i, item := range seq {
		s, scalar := Scalar(item)
		if !scalar {
			return nil, false, fmt.Errorf("%s[%d]: expected a scalar, got %s", key, i, item.Kind())
		}
		out = append(out, s)
	}
	return out, true, nil
}

// Scalar renders a scalar value as text. It returns false for collections.
func Scalar(v Value) (string, bool) {
	switch x := v.(type) {
	case Null:
		return "", true
	case Bool:
		return strconv.FormatBool(bool(x)), true
	case Number:
		return x.String(), true
	case String:
		return string(x), true
	default:
		return "", false
	}
}

// ToNative converts a value tree into plain Go values: nil, bool, float64,
// string, map[string]any and []any. Key order is lost.
func ToNative(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case String:
		return string(x)
	case *Mapping:
		out := make(map[string]any, x.Len())
		for _, e := range x.entries {
			out[e.Key] = ToNative(e.Value)
		}
		return out
	case Sequence:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToNative(item)
		}
		return out
	default:
		panic(fmt.Sprintf("configlang: unknown value type %T", v))
	}
}

// Equal reports whether two value trees are structurally equal,
// including mapping key order.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Number:
		return x == b.(Number)
	case String:
		return x == b.(String)
	case *Mapping:
		y := b.(*Mapping)
		if x.Len() != y.Len() {
			return false
		}
		for i, e := range x.entries {
			other := y.entries[i]
			if e.Key != other.Key || !Equal(e.Value, other.Value) {
				return false
			}
		}
		return true
	case Sequence:
		y := b.(Sequence)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

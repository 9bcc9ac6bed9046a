package entity

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

// Value is a closed representation of an arbitrarily shaped decoded JSON
// tree, as returned by node RPC calls whose object schemas are not known in
// advance. It is immutable after construction and never cyclic.
type Value struct {
	kind ValueKind
	b    bool
	num  stdjson.Number
	str  string
	seq  []Value
	mp   map[string]Value
}

// Null is the zero Value.
var Null = Value{kind: KindNull}

// NewBool constructs a boolean Value.
func NewBool(b bool) Value { return Value{kind: KindBool, b: b} }

// NewNumber constructs a numeric Value from its JSON text representation.
func NewNumber(n string) Value { return Value{kind: KindNumber, num: stdjson.Number(n)} }

// NewString constructs a string Value.
func NewString(s string) Value { return Value{kind: KindString, str: s} }

// NewSequence constructs a sequence Value.
func NewSequence(items ...Value) Value { return Value{kind: KindSequence, seq: items} }

// NewMapping constructs a mapping Value.
func NewMapping(m map[string]Value) Value { return Value{kind: KindMapping, mp: m} }

// Kind reports which variant this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the Value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload. Valid only for KindBool.
func (v Value) Bool() bool { return v.b }

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.str }

// NumberText returns the numeric payload as its JSON text. Valid only for
// KindNumber.
func (v Value) NumberText() string { return string(v.num) }

// Sequence returns the element slice. Valid only for KindSequence.
func (v Value) Sequence() []Value { return v.seq }

// Mapping returns the key/value map. Valid only for KindMapping.
func (v Value) Mapping() map[string]Value { return v.mp }

// Get looks up a key in a mapping Value. Returns Null, false for any other
// variant or when the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Null, false
	}
	child, ok := v.mp[key]
	return child, ok
}

// GetString returns the string held under key, or "" when the key is absent
// or not a string.
func (v Value) GetString(key string) string {
	child, ok := v.Get(key)
	if !ok || child.kind != KindString {
		return ""
	}
	return child.str
}

// SortedKeys returns the mapping keys in lexicographic order, giving the
// extraction routines a deterministic traversal over Go's randomized maps.
func (v Value) SortedKeys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.mp))
	for k := range v.mp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsBigInt interprets a numeric Value or an integer-looking string Value as
// a base-10 integer. The second return is false for any other shape, for
// fractional numbers, and for strings that fail to parse.
func (v Value) AsBigInt() (*big.Int, bool) {
	var text string
	switch v.kind {
	case KindNumber:
		text = string(v.num)
	case KindString:
		text = v.str
	default:
		return nil, false
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, false
	}
	return n, true
}

// FromInterface converts a value decoded by encoding/json-compatible
// decoders (map[string]interface{}, []interface{}, json.Number, string,
// bool, nil) into a Value. Unknown Go types degrade to their string form.
func FromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return NewBool(t)
	case string:
		return NewString(t)
	case stdjson.Number:
		return Value{kind: KindNumber, num: t}
	case float64:
		// Reachable only when the decoder was not configured with UseNumber.
		return NewNumber(strconv.FormatFloat(t, 'f', -1, 64))
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromInterface(item))
		}
		return Value{kind: KindSequence, seq: items}
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromInterface(item)
		}
		return Value{kind: KindMapping, mp: m}
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}

// DecodeValue parses raw JSON into a Value, preserving full numeric
// precision via json.Number semantics.
func DecodeValue(raw []byte) (Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Null, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return Null, fmt.Errorf("failed to decode value tree: %w", err)
	}
	return FromInterface(decoded), nil
}

// UnmarshalJSON lets Value fields inside typed RPC response structs decode
// directly.
func (v *Value) UnmarshalJSON(raw []byte) error {
	decoded, err := DecodeValue(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalJSON re-emits the tree in its original JSON shape so dynamic field
// names and matched subtrees can be echoed in reports verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toInterface())
}

func (v Value) toInterface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindSequence:
		items := make([]interface{}, 0, len(v.seq))
		for _, item := range v.seq {
			items = append(items, item.toInterface())
		}
		return items
	case KindMapping:
		m := make(map[string]interface{}, len(v.mp))
		for k, item := range v.mp {
			m[k] = item.toInterface()
		}
		return m
	default:
		return nil
	}
}

package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindOther Kind = iota
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "other"
	}
}

// Field is one key/value pair of a Mapping. Fields keep document order.
type Field struct {
	Key   string
	Value Value
}

// Value is a closed variant over the shapes of host content: strings,
// sequences, keyed mappings, and everything else. The zero Value is Other.
type Value struct {
	kind   Kind
	str    string
	items  []Value
	fields []Field
}

func String(s string) Value { return Value{kind: KindString, str: s} }

func Sequence(items ...Value) Value { return Value{kind: KindSequence, items: items} }

func Mapping(fields ...Field) Value { return Value{kind: KindMapping, fields: fields} }

func Other() Value { return Value{} }

func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; empty for non-string values.
func (v Value) Str() string { return v.str }

func (v Value) Items() []Value { return v.items }

func (v Value) Fields() []Field { return v.fields }

// FromAny converts a decoded Go value (as produced by encoding/json into an
// interface{}) into a Value. Map keys are visited in sorted order so the
// result is deterministic.
func FromAny(x any) Value {
	switch t := x.(type) {
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Sequence(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return Sequence(items...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromAny(t[k])}
		}
		return Mapping(fields...)
	case Value:
		return t
	default:
		return Other()
	}
}

// Parse decodes a JSON document into a Value, preserving object key order.
// Empty input decodes to Other.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Other(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("decoding content: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("decoding content: trailing data after JSON value")
	}
	return v, nil
}

// UnmarshalJSON lets a Value be embedded in request bodies.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Sequence(items...), nil
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Mapping(fields...), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	default:
		return Other(), nil
	}
}

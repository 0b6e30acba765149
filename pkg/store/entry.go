package store

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Kind identifies the primitive representation of a stored value.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindString
	KindStringSlice
)

// String returns the wire name of the kind, as used in the canonical
// JSON encoding, the HTTP API and the CLI --type flag.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStringSlice:
		return "strings"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind resolves a wire name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "strings":
		return KindStringSlice, nil
	default:
		return 0, fmt.Errorf("store: unknown kind %q", s)
	}
}

// Entry is a single stored value tagged with its kind. Exactly one of the
// payload fields is meaningful, selected by Kind.
//
// Entry has a canonical JSON encoding shared by the durable stores, the
// HTTP API and the CLI:
//
//	{"type":"int","value":42}
//	{"type":"strings","value":["a","b"]}
type Entry struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Slice []string
}

// BoolEntry returns an Entry holding a bool.
func BoolEntry(v bool) Entry { return Entry{Kind: KindBool, Bool: v} }

// IntEntry returns an Entry holding an int64.
func IntEntry(v int64) Entry { return Entry{Kind: KindInt, Int: v} }

// FloatEntry returns an Entry holding a float64.
func FloatEntry(v float64) Entry { return Entry{Kind: KindFloat, Float: v} }

// StringEntry returns an Entry holding a string.
func StringEntry(v string) Entry { return Entry{Kind: KindString, Str: v} }

// StringSliceEntry returns an Entry holding a copy of the given slice.
func StringSliceEntry(v []string) Entry {
	return Entry{Kind: KindStringSlice, Slice: slices.Clone(v)}
}

// Value returns the typed payload as an any. Slices are copied.
func (e Entry) Value() any {
	switch e.Kind {
	case KindBool:
		return e.Bool
	case KindInt:
		return e.Int
	case KindFloat:
		return e.Float
	case KindString:
		return e.Str
	case KindStringSlice:
		return slices.Clone(e.Slice)
	default:
		return nil
	}
}

// entryWire is the canonical JSON shape of an Entry.
type entryWire struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the entry in its canonical form.
func (e Entry) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Kind {
	case KindBool:
		payload = e.Bool
	case KindInt:
		payload = e.Int
	case KindFloat:
		payload = e.Float
	case KindString:
		payload = e.Str
	case KindStringSlice:
		// Encode an empty slice as [], not null.
		if e.Slice == nil {
			payload = []string{}
		} else {
			payload = e.Slice
		}
	default:
		return nil, fmt.Errorf("store: cannot encode entry of %s", e.Kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryWire{Type: e.Kind.String(), Value: raw})
}

// UnmarshalJSON decodes the canonical form. Integers are decoded exactly;
// a fractional number under "type":"int" is an error, not a truncation.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	kind, err := ParseKind(wire.Type)
	if err != nil {
		return err
	}

	decoded := Entry{Kind: kind}
	switch kind {
	case KindBool:
		err = json.Unmarshal(wire.Value, &decoded.Bool)
	case KindInt:
		err = json.Unmarshal(wire.Value, &decoded.Int)
	case KindFloat:
		err = json.Unmarshal(wire.Value, &decoded.Float)
	case KindString:
		err = json.Unmarshal(wire.Value, &decoded.Str)
	case KindStringSlice:
		err = json.Unmarshal(wire.Value, &decoded.Slice)
		if decoded.Slice == nil {
			decoded.Slice = []string{}
		}
	}
	if err != nil {
		return fmt.Errorf("store: decoding %s entry: %w", kind, err)
	}

	*e = decoded
	return nil
}

// clone returns a copy of the entry that shares no state with the original.
func (e Entry) clone() Entry {
	out := e
	out.Slice = slices.Clone(e.Slice)
	return out
}

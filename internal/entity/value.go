// Package entity implements the tagged value union used on the wire for
// invocation payloads, config knobs, and chat messages.
package entity

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the variant carried by a Value.
type Kind string

const (
	KindBool         Kind = "BOOL"
	KindI32          Kind = "I32"
	KindI64          Kind = "I64"
	KindF32          Kind = "F32"
	KindF64          Kind = "F64"
	KindString       Kind = "STRING"
	KindMessage      Kind = "MESSAGE"
	KindFloat32Array Kind = "FLOAT32ARRAY"
	KindArray        Kind = "ARRAY"
	KindMap          Kind = "MAP"
)

// Message is the {role, content} pair carried by KindMessage values.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Value is a closed tagged union. Exactly one of the typed fields is
// populated, selected by Kind. On the wire it serializes as a single-key
// object keyed by the variant name (e.g. {"STRING":"hi"}), an externally
// tagged encoding.
type Value struct {
	Kind  Kind
	Bool  bool
	I32   int32
	I64   int64
	F32   float32
	F64   float64
	Str   string
	Msg   *Message
	Vec32 []float32
	Arr   []Value
	Map   map[string]Value
}

func Bool(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func I32(v int32) Value     { return Value{Kind: KindI32, I32: v} }
func I64(v int64) Value     { return Value{Kind: KindI64, I64: v} }
func F32(v float32) Value   { return Value{Kind: KindF32, F32: v} }
func F64(v float64) Value   { return Value{Kind: KindF64, F64: v} }
func String(v string) Value { return Value{Kind: KindString, Str: v} }
func FromMessage(role, content string) Value {
	return Value{Kind: KindMessage, Msg: &Message{Role: role, Content: content}}
}
func Float32Array(v []float32) Value { return Value{Kind: KindFloat32Array, Vec32: v} }
func Array(v []Value) Value          { return Value{Kind: KindArray, Arr: v} }
func Map(v map[string]Value) Value   { return Value{Kind: KindMap, Map: v} }

// AsString returns the string payload for KindString, or an error otherwise.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("entity: value is %s, not STRING", v.Kind)
	}
	return v.Str, nil
}

// AsMessage returns the message payload for KindMessage, or an error otherwise.
func (v Value) AsMessage() (Message, error) {
	if v.Kind != KindMessage || v.Msg == nil {
		return Message{}, fmt.Errorf("entity: value is %s, not MESSAGE", v.Kind)
	}
	return *v.Msg, nil
}

// AsFloat32Array returns the vector payload for KindFloat32Array, or an error otherwise.
func (v Value) AsFloat32Array() ([]float32, error) {
	if v.Kind != KindFloat32Array {
		return nil, fmt.Errorf("entity: value is %s, not FLOAT32ARRAY", v.Kind)
	}
	return v.Vec32, nil
}

// MarshalJSON renders the value as a single-key {"KIND": payload} object.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind {
	case KindBool:
		payload = v.Bool
	case KindI32:
		payload = v.I32
	case KindI64:
		payload = v.I64
	case KindF32:
		payload = v.F32
	case KindF64:
		payload = v.F64
	case KindString:
		payload = v.Str
	case KindMessage:
		payload = v.Msg
	case KindFloat32Array:
		payload = v.Vec32
	case KindArray:
		payload = v.Arr
	case KindMap:
		payload = v.Map
	default:
		return nil, fmt.Errorf("entity: cannot marshal value with empty kind")
	}
	return json.Marshal(map[string]any{string(v.Kind): payload})
}

// UnmarshalJSON parses a single-key {"KIND": payload} object. An object
// with zero or more than one key, or an unrecognized kind, is an error:
// the union is closed.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("entity: value must be a single-key object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("entity: value object must have exactly one key, got %d", len(raw))
	}

	for k, payload := range raw {
		kind := Kind(k)
		out := Value{Kind: kind}
		var err error
		switch kind {
		case KindBool:
			err = json.Unmarshal(payload, &out.Bool)
		case KindI32:
			err = json.Unmarshal(payload, &out.I32)
		case KindI64:
			err = json.Unmarshal(payload, &out.I64)
		case KindF32:
			err = json.Unmarshal(payload, &out.F32)
		case KindF64:
			err = json.Unmarshal(payload, &out.F64)
		case KindString:
			err = json.Unmarshal(payload, &out.Str)
		case KindMessage:
			out.Msg = &Message{}
			err = json.Unmarshal(payload, out.Msg)
		case KindFloat32Array:
			err = json.Unmarshal(payload, &out.Vec32)
		case KindArray:
			err = json.Unmarshal(payload, &out.Arr)
		case KindMap:
			err = json.Unmarshal(payload, &out.Map)
		default:
			return fmt.Errorf("entity: unknown value kind %q", k)
		}
		if err != nil {
			return fmt.Errorf("entity: decode %s payload: %w", kind, err)
		}
		*v = out
		return nil
	}
	return nil
}

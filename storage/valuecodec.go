package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abertram/chronicle"
)

// valueEnvelope is the self-describing JSON encoding of a Value,
// shared by SQLStore and BadgerStore. Resolves the open question in
// §9: a small tagged JSON envelope, grounded on
// original_source/src/sqlite.rs's mod type_impls (which serializes
// Value via serde_json), round-tripping every one of the five
// variants without precision loss.
type valueEnvelope struct {
	Tag string          `json:"t"`
	Val json.RawMessage `json:"v"`
}

// EncodeValue serializes v to its persisted byte representation.
func EncodeValue(v chronicle.Value) ([]byte, error) {
	var tag string
	var raw interface{}

	switch chronicle.TypeOf(v) {
	case chronicle.KindBool:
		tag, raw = "bool", v
	case chronicle.KindInt:
		tag, raw = "int", v
	case chronicle.KindStr:
		tag, raw = "str", v
	case chronicle.KindRef:
		ref, _ := chronicle.AsRef(v)
		tag, raw = "ref", int64(ref)
	case chronicle.KindDateTime:
		t, _ := chronicle.AsDateTime(v)
		tag, raw = "datetime", t.UTC().Format(time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("chronicle: cannot encode value %#v", v)
	}

	valBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("chronicle: encode value: %w", err)
	}
	return json.Marshal(valueEnvelope{Tag: tag, Val: valBytes})
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(data []byte) (chronicle.Value, error) {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("chronicle: decode value envelope: %w", err)
	}

	switch env.Tag {
	case "bool":
		var b bool
		if err := json.Unmarshal(env.Val, &b); err != nil {
			return nil, err
		}
		return chronicle.Bool(b), nil
	case "int":
		var i int64
		if err := json.Unmarshal(env.Val, &i); err != nil {
			return nil, err
		}
		return chronicle.Int(i), nil
	case "str":
		var s string
		if err := json.Unmarshal(env.Val, &s); err != nil {
			return nil, err
		}
		return chronicle.Str(s), nil
	case "ref":
		var i int64
		if err := json.Unmarshal(env.Val, &i); err != nil {
			return nil, err
		}
		return chronicle.Ref(chronicle.EntityId(i)), nil
	case "datetime":
		var s string
		if err := json.Unmarshal(env.Val, &s); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("chronicle: decode datetime value: %w", err)
		}
		return chronicle.DateTime(t), nil
	default:
		return nil, fmt.Errorf("chronicle: unknown value tag %q", env.Tag)
	}
}

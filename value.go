package chronicle

import (
	"fmt"
	"time"
)

// Value is the tagged union stored as the "v" component of a datom.
// It is deliberately a closed sum type with five variants: Bool, Int,
// Str, Ref, DateTime. Represented as interface{} holding one of bool,
// int64, string, EntityId (Ref), or time.Time, following the same
// interface{}-as-union idiom the teacher uses for its own Value type.
type Value interface{}

// ValueKind tags which of the five variants a Value holds.
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindStr
	KindRef
	KindDateTime
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindRef:
		return "ref"
	case KindDateTime:
		return "datetime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Bool constructs a Bool value.
func Bool(b bool) Value { return b }

// Int constructs an Int value.
func Int(i int64) Value { return i }

// Str constructs a Str value.
func Str(s string) Value { return s }

// Ref constructs a Ref value pointing at another entity.
func Ref(e EntityId) Value { return e }

// DateTime constructs a DateTime value.
func DateTime(t time.Time) Value { return t }

// TypeOf returns the tag of v, panicking if v does not hold one of the
// five closed variants. A Value arriving here from outside the
// constructors above (e.g. decoded from storage) is expected to have
// already been normalized to one of these Go types.
func TypeOf(v Value) ValueKind {
	switch v.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInt
	case string:
		return KindStr
	case EntityId:
		return KindRef
	case time.Time:
		return KindDateTime
	default:
		panic(fmt.Sprintf("chronicle: value %#v (%T) is not a member of the Value union", v, v))
	}
}

// CoerceValue converts common Go literal types into the closed Value
// union, so callers of the operation DSL can pass "plain" Go values
// (int, string literal, bool, time.Time, EntityId) without spelling
// out the constructor. It mirrors the ergonomic `From<&str> for Value`
// conversion the original implementation offered for string literals,
// generalized to every variant's natural literal types.
func CoerceValue(v interface{}) (Value, error) {
	switch x := v.(type) {
	case bool:
		return Bool(x), nil
	case string:
		return Str(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case EntityId:
		return Ref(x), nil
	case time.Time:
		return DateTime(x), nil
	default:
		return nil, fmt.Errorf("chronicle: cannot coerce %#v (%T) into a Value", v, v)
	}
}

// AsBool returns v's bool payload and whether v held one.
func AsBool(v Value) (bool, bool) { b, ok := v.(bool); return b, ok }

// AsInt returns v's int64 payload and whether v held one.
func AsInt(v Value) (int64, bool) { i, ok := v.(int64); return i, ok }

// AsStr returns v's string payload and whether v held one.
func AsStr(v Value) (string, bool) { s, ok := v.(string); return s, ok }

// AsRef returns v's EntityId payload and whether v held one.
func AsRef(v Value) (EntityId, bool) { e, ok := v.(EntityId); return e, ok }

// AsDateTime returns v's time.Time payload and whether v held one.
func AsDateTime(v Value) (time.Time, bool) { t, ok := v.(time.Time); return t, ok }

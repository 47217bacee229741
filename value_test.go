package chronicle

import (
	"testing"
	"time"
)

func TestCoerceValueAcceptsNativeLiterals(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		kind ValueKind
	}{
		{"bool", true, KindBool},
		{"string", "hello", KindStr},
		{"int", 7, KindInt},
		{"int32", int32(7), KindInt},
		{"int64", int64(7), KindInt},
		{"entity id", EntityId(42), KindRef},
		{"time", time.Now(), KindDateTime},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := CoerceValue(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := TypeOf(v); got != c.kind {
				t.Errorf("expected kind %s, got %s", c.kind, got)
			}
		})
	}
}

func TestCoerceValueRejectsUnsupportedType(t *testing.T) {
	if _, err := CoerceValue(3.14); err == nil {
		t.Error("expected an error coercing a float64")
	}
	if _, err := CoerceValue(struct{}{}); err == nil {
		t.Error("expected an error coercing an anonymous struct")
	}
}

func TestTypeOfPanicsOnForeignType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected TypeOf to panic on a non-union value")
		}
	}()
	TypeOf(3.14)
}

func TestAccessorsRoundTrip(t *testing.T) {
	if b, ok := AsBool(Bool(true)); !ok || !b {
		t.Errorf("AsBool(Bool(true)) = %v, %v", b, ok)
	}
	if i, ok := AsInt(Int(5)); !ok || i != 5 {
		t.Errorf("AsInt(Int(5)) = %v, %v", i, ok)
	}
	if s, ok := AsStr(Str("x")); !ok || s != "x" {
		t.Errorf("AsStr(Str(\"x\")) = %v, %v", s, ok)
	}
	if e, ok := AsRef(Ref(9)); !ok || e != 9 {
		t.Errorf("AsRef(Ref(9)) = %v, %v", e, ok)
	}
	now := time.Now()
	if tm, ok := AsDateTime(DateTime(now)); !ok || !tm.Equal(now) {
		t.Errorf("AsDateTime(DateTime(now)) = %v, %v", tm, ok)
	}

	if _, ok := AsBool(Int(1)); ok {
		t.Error("AsBool should reject a non-bool value")
	}
}

package chronicle

import (
	"strings"
	"time"
)

// kindOrder fixes the stable tag order used by CompareValues: Bool <
// Int < Str < Ref < DateTime.
var kindOrder = map[ValueKind]int{
	KindBool:     0,
	KindInt:      1,
	KindStr:      2,
	KindRef:      3,
	KindDateTime: 4,
}

// CompareValues totally orders two Values: first by tag, then by the
// contained value under its natural order. Mirrors the structure of
// the teacher's CompareValues in datalog/compare.go, narrowed to the
// five closed variants this domain's Value union actually has.
func CompareValues(a, b Value) int {
	ka, kb := TypeOf(a), TypeOf(b)
	if ka != kb {
		oa, ob := kindOrder[ka], kindOrder[kb]
		switch {
		case oa < ob:
			return -1
		case oa > ob:
			return 1
		default:
			return 0
		}
	}

	switch ka {
	case KindBool:
		return compareBool(a.(bool), b.(bool))
	case KindInt:
		return compareInt64(a.(int64), b.(int64))
	case KindStr:
		return strings.Compare(a.(string), b.(string))
	case KindRef:
		return compareInt64(int64(a.(EntityId)), int64(b.(EntityId)))
	case KindDateTime:
		return compareTime(a.(time.Time), b.(time.Time))
	default:
		return 0
	}
}

// ValuesEqual reports structural equality of two Values.
func ValuesEqual(a, b Value) bool {
	return CompareValues(a, b) == 0
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// CompareDatoms orders two datoms under the given index kind's sort
// key, falling back through the minor keys the index table in §4.2
// specifies. Equal-value ties break on Tx, matching the entity
// materializer's "equal-tx entries by value order" rule applied in
// reverse for a stable total order across the whole datom set.
func CompareDatoms(kind IndexKind, a, b Datom) int {
	var order [4]func(Datom, Datom) int
	eCmp := func(x, y Datom) int { return compareInt64(int64(x.E), int64(y.E)) }
	aCmp := func(x, y Datom) int { return compareInt64(int64(x.A), int64(y.A)) }
	vCmp := func(x, y Datom) int { return CompareValues(x.V, y.V) }
	tCmp := func(x, y Datom) int { return compareInt64(int64(x.Tx), int64(y.Tx)) }

	switch kind {
	case AEVT:
		order = [4]func(Datom, Datom) int{aCmp, eCmp, vCmp, tCmp}
	case AVET:
		order = [4]func(Datom, Datom) int{aCmp, vCmp, eCmp, tCmp}
	default: // EAVT
		order = [4]func(Datom, Datom) int{eCmp, aCmp, vCmp, tCmp}
	}

	for _, cmp := range order {
		if c := cmp(a, b); c != 0 {
			return c
		}
	}
	return 0
}

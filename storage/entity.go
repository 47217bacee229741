package storage

import (
	"fmt"
	"sort"

	"github.com/abertram/chronicle"
)

// EntitySnapshot is the materialized view of an entity: a mapping
// from attribute entity to its ordered list of current values. It is
// a snapshot — its values are computed once from a query and are
// unaffected by subsequent transactions; Get and GetMany still query
// the store to resolve an attribute name to its id.
//
// Grounded on original_source/src/entity.rs's Entity and
// original_source/src/lib.rs's entity() default method.
type EntitySnapshot struct {
	Id     chronicle.EntityId
	store  Store
	values map[chronicle.EntityId][]chronicle.Value
}

// GetEntity folds the EAVT prefix for id into an EntitySnapshot.
// Iterates datoms in (attribute, tx, value) order, inserting on
// Asserted (a value already in the live set is not added again) and
// removing on Retracted; a retraction for a value not
// currently in the live set indicates storage corruption and panics
// rather than returning a normal error (§4.5, §7: this is one of the
// "programming error, never surfaced over the interface" categories).
//
// The pseudo-attribute db/id is synthesized into the mapping as
// Ref(id) (§9's resolved open question), even though no such datom is
// ever actually stored.
func GetEntity(store Store, id chronicle.EntityId) (*EntitySnapshot, error) {
	ds, err := store.Query(chronicle.On(chronicle.EAVT).Entity(id))
	if err != nil {
		return nil, &StorageError{Cause: err}
	}

	sort.Slice(ds, func(i, j int) bool {
		if ds[i].A != ds[j].A {
			return ds[i].A < ds[j].A
		}
		if ds[i].Tx != ds[j].Tx {
			return ds[i].Tx < ds[j].Tx
		}
		return chronicle.CompareValues(ds[i].V, ds[j].V) < 0
	})

	live := make(map[chronicle.EntityId][]chronicle.Value)
	for _, d := range ds {
		switch {
		case d.Status.IsAsserted():
			dup := false
			for _, v := range live[d.A] {
				if chronicle.ValuesEqual(v, d.V) {
					dup = true
					break
				}
			}
			if !dup {
				live[d.A] = append(live[d.A], d.V)
			}
		case d.Status.IsRetracted():
			vs := live[d.A]
			idx := -1
			for i, v := range vs {
				if chronicle.ValuesEqual(v, d.V) {
					idx = i
					break
				}
			}
			if idx == -1 {
				panic(fmt.Sprintf("chronicle: invariant violation: retraction of non-live value %v for entity %d attribute %d at tx %d", d.V, d.E, d.A, d.Tx))
			}
			live[d.A] = append(vs[:idx], vs[idx+1:]...)
		}
	}

	// db/id is synthesized rather than stored; it is only included
	// once the entity actually exists (has at least one live
	// assertion), so entity(unknown_id) still yields a genuinely
	// empty mapping (§8 boundary behavior) rather than a spurious
	// single-key map.
	if len(live) > 0 {
		live[IdAttrID] = []chronicle.Value{chronicle.Ref(id)}
	}

	return &EntitySnapshot{Id: id, store: store, values: live}, nil
}

// Get returns the first current value of attribute (by name), or nil
// if none. Get on a cardinality-many attribute is undefined which of
// the live values is returned.
func (e *EntitySnapshot) Get(attribute string) chronicle.Value {
	vs := e.GetMany(attribute)
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}

// GetMany returns every current value of attribute (by name). Missing
// or unknown attribute names yield an empty slice, never an error.
func (e *EntitySnapshot) GetMany(attribute string) []chronicle.Value {
	id, ok, err := Attribute(e.store, attribute)
	if err != nil || !ok {
		return nil
	}
	return e.values[id]
}

// Values exposes the full attribute-entity -> values mapping.
func (e *EntitySnapshot) Values() map[chronicle.EntityId][]chronicle.Value {
	return e.values
}

// ErrNotRef is returned by FollowRef when the named attribute's
// current value is not a Ref.
var ErrNotRef = fmt.Errorf("chronicle: attribute value is not a Ref")

// FollowRef dereferences the current value of a Ref-typed attribute
// into the referenced entity's own snapshot. This is forward
// navigation along a stored Ref value, distinct from the VAET reverse
// index that is out of scope (§9); grounded on
// original_source/src/entity.rs's follow_ref.
func (e *EntitySnapshot) FollowRef(attribute string) (*EntitySnapshot, error) {
	v := e.Get(attribute)
	if v == nil {
		return nil, ErrNotRef
	}
	ref, ok := chronicle.AsRef(v)
	if !ok {
		return nil, ErrNotRef
	}
	return GetEntity(e.store, ref)
}

package storage

import (
	"fmt"

	"github.com/abertram/chronicle"
)

// Stable, predetermined entity ids for the five built-in schema
// attributes, all in the Db partition, written at tx=0 by Bootstrap.
// The concrete numbers only need to be distinct, stable across
// process restarts, and valid members of PartitionDb; they are never
// re-derived at runtime.
const (
	IdAttrID              chronicle.EntityId = chronicle.EntityId(chronicle.PartitionDb.Mask()) | 1
	IdentAttrID           chronicle.EntityId = chronicle.EntityId(chronicle.PartitionDb.Mask()) | 2
	DocAttrID             chronicle.EntityId = chronicle.EntityId(chronicle.PartitionDb.Mask()) | 3
	TxInstantAttrID       chronicle.EntityId = chronicle.EntityId(chronicle.PartitionDb.Mask()) | 4
	CardinalityManyAttrID chronicle.EntityId = chronicle.EntityId(chronicle.PartitionDb.Mask()) | 5

	bootstrapTx chronicle.EntityId = 0
)

const (
	IdAttrName              = "db/id"
	IdentAttrName           = "db/ident"
	DocAttrName             = "db/doc"
	TxInstantAttrName       = "db/tx_instant"
	CardinalityManyAttrName = "db.cardinality/many"
)

// builtinAttributeIDs maps every built-in attribute name to its
// stable id, used both by Bootstrap and by the transaction engine's
// temp-id partition policy (§4.4 step 4: an operation on one of these
// names other than db/tx_instant allocates its temp id from the Db
// partition).
var builtinAttributeIDs = map[string]chronicle.EntityId{
	IdAttrName:              IdAttrID,
	IdentAttrName:           IdentAttrID,
	DocAttrName:             DocAttrID,
	TxInstantAttrName:       TxInstantAttrID,
	CardinalityManyAttrName: CardinalityManyAttrID,
}

// IsBuiltinAttributeName reports whether name is one of the five
// built-in schema attributes.
func IsBuiltinAttributeName(name string) bool {
	_, ok := builtinAttributeIDs[name]
	return ok
}

// IndexedAttributes returns the set of attribute entity ids included
// in AVET. Currently fixed at {db/ident}, per §4.2; designed to be
// extended later without disturbing callers, which is why it is a
// function rather than an exported constant.
func IndexedAttributes() map[chronicle.EntityId]bool {
	return map[chronicle.EntityId]bool{IdentAttrID: true}
}

// Bootstrap writes the five seed datoms at tx=0 if they are not
// already present, so the schema system can describe itself (every
// attribute, including db/ident itself, has a db/ident datom). Safe
// to call on every Open/NewInMemory; it is a no-op on a store that
// already has them.
func Bootstrap(store Store) error {
	existing, err := store.Query(chronicle.On(chronicle.AVET).
		Attribute(IdentAttrID).
		Value(chronicle.Str(IdentAttrName)))
	if err != nil {
		return fmt.Errorf("chronicle: bootstrap check failed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seed := make([]chronicle.Datom, 0, len(builtinAttributeIDs))
	for name, id := range builtinAttributeIDs {
		seed = append(seed, chronicle.Datom{
			E:      id,
			A:      IdentAttrID,
			V:      chronicle.Str(name),
			Tx:     bootstrapTx,
			Status: chronicle.Asserted(),
		})
	}
	if err := store.Append(seed); err != nil {
		return fmt.Errorf("chronicle: bootstrap write failed: %w", err)
	}
	return nil
}

// Attribute looks up an attribute entity by its db/ident name via the
// AVET index, per §4.3 (not via EAVT — the earlier, superseded
// approach in this implementation's grounding source).
func Attribute(store Store, name string) (chronicle.EntityId, bool, error) {
	ds, err := store.Query(chronicle.On(chronicle.AVET).
		Attribute(IdentAttrID).
		Value(chronicle.Str(name)))
	if err != nil {
		return 0, false, fmt.Errorf("chronicle: attribute lookup failed: %w", err)
	}
	if len(ds) == 0 {
		return 0, false, nil
	}
	return ds[0].E, true, nil
}

// AttributeName is the inverse of Attribute: given an attribute
// entity id, returns its db/ident name via an AVET prefix
// (entity=id, attribute=db/ident).
func AttributeName(store Store, id chronicle.EntityId) (string, bool, error) {
	ds, err := store.Query(chronicle.On(chronicle.AVET).
		Entity(id).
		Attribute(IdentAttrID))
	if err != nil {
		return "", false, fmt.Errorf("chronicle: attribute name lookup failed: %w", err)
	}
	if len(ds) == 0 {
		return "", false, nil
	}
	s, ok := chronicle.AsStr(ds[0].V)
	if !ok {
		return "", false, nil
	}
	return s, true, nil
}

// HasAttribute is a convenience predicate over Attribute.
func HasAttribute(store Store, name string) (bool, error) {
	_, ok, err := Attribute(store, name)
	return ok, err
}

// AttributeInfo describes an attribute entity's schema-level
// properties.
type AttributeInfo struct {
	CardinalityMany bool
}

// GetAttributeInfo derives {cardinality_many} from the EAVT slice of
// the attribute entity: true iff there is a live assertion of
// db.cardinality/many with a value other than Bool(false).
func GetAttributeInfo(store Store, id chronicle.EntityId) (AttributeInfo, error) {
	ds, err := store.Query(chronicle.On(chronicle.EAVT).
		Entity(id).
		Attribute(CardinalityManyAttrID))
	if err != nil {
		return AttributeInfo{}, fmt.Errorf("chronicle: attribute info lookup failed: %w", err)
	}
	for _, d := range ds {
		if b, ok := chronicle.AsBool(d.V); !ok || b {
			return AttributeInfo{CardinalityMany: true}, nil
		}
	}
	return AttributeInfo{}, nil
}

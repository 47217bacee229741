// Package storage implements the collaborator contract that the
// database core consumes: an append-only datom store with indexed
// retrieval (§4.1), the schema registry, transaction engine, entity
// materializer, and the public Handle that ties them together.
//
// Everything here depends only on the root chronicle package's core
// types; nothing in chronicle imports storage, so there is no import
// cycle even though the transaction engine, schema registry, and
// entity materializer all need each other's helpers.
package storage

import "github.com/abertram/chronicle"

// Store is the capability the transaction engine and read paths
// consume. Implementations need not be internally indexed beyond what
// Query's contract requires; they need not support concurrent writers.
//
// Narrowed from the teacher's five-method Store interface
// (Assert/Retract/Scan/Get/BeginTx) to the three operations §4.1
// specifies: retraction is just another datom through Append here.
type Store interface {
	// Append persists datoms atomically: either all become visible
	// together or none do.
	Append(datoms []chronicle.Datom) error

	// Query returns every live datom satisfying sel, in sel.Kind's
	// sort order. "Live" means status == Asserted and no subsequent
	// Retracted datom for the same (e,a,v) with a later tx exists.
	Query(sel chronicle.Selector) ([]chronicle.Datom, error)

	// HighestEID returns the largest entity id observed in partition
	// p, or p's base mask if none has been allocated yet.
	HighestEID(p chronicle.Partition) (chronicle.EntityId, error)

	// Close releases any resources held by the backend.
	Close() error
}

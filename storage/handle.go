package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abertram/chronicle"
)

// Handle is the public entry point (§6): open/new_in_memory, tempid,
// transact, datoms, entity, attribute/attribute_name/has_attribute,
// highest_eid. Grounded on the teacher's storage.Database — same
// constructor shape and mutex-guarded handle — minus its query-engine
// integration (Matcher/ExecuteQuery/AsOf/PlanCache), which has no
// analogue since a declarative query language is an explicit
// non-goal.
type Handle struct {
	// mu serializes Transact, matching §5's "a handle may be used
	// from multiple callers only under external mutual exclusion" by
	// providing that exclusion here rather than leaving it to every
	// caller.
	mu     sync.Mutex
	store  Store
	engine *Engine

	tempIdCounter int64
}

// NewInMemory returns a Handle backed by a fresh MemoryStore, bootstrapped.
func NewInMemory() (*Handle, error) {
	return newHandle(NewMemoryStore())
}

// Backend names a storage representation Open can select.
type Backend int

const (
	BackendSQLite Backend = iota
	BackendBadger
)

// Open returns a Handle backed by a persistent store at location,
// bootstrapped if necessary. backend selects the representation;
// there is no in-memory option here since NewInMemory covers that.
func Open(backend Backend, location string) (*Handle, error) {
	var store Store
	var err error
	switch backend {
	case BackendSQLite:
		store, err = NewSQLStore(location)
	case BackendBadger:
		store, err = NewBadgerStore(location)
	default:
		return nil, fmt.Errorf("chronicle: unknown backend %d", backend)
	}
	if err != nil {
		return nil, err
	}
	return newHandle(store)
}

func newHandle(store Store) (*Handle, error) {
	if err := Bootstrap(store); err != nil {
		store.Close()
		return nil, err
	}
	return &Handle{store: store, engine: NewEngine(store)}, nil
}

// Close releases the underlying storage backend.
func (h *Handle) Close() error {
	return h.store.Close()
}

// TempId returns a fresh temp id, unique within this handle, for use
// in an AssertWithTempId operation.
func (h *Handle) TempId() chronicle.TempId {
	return chronicle.TempId(atomic.AddInt64(&h.tempIdCounter, 1))
}

// Transact resolves and appends a batch of operations, under the
// handle's mutual-exclusion lock.
func (h *Handle) Transact(ops []Operation) (TransactionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Transact(ops)
}

// Datoms runs a raw index query.
func (h *Handle) Datoms(sel chronicle.Selector) ([]chronicle.Datom, error) {
	return h.store.Query(sel)
}

// Entity materializes entity id's current attribute/value mapping.
func (h *Handle) Entity(id chronicle.EntityId) (*EntitySnapshot, error) {
	return GetEntity(h.store, id)
}

// Attribute resolves a db/ident name to its attribute entity id.
func (h *Handle) Attribute(name string) (chronicle.EntityId, bool, error) {
	return Attribute(h.store, name)
}

// AttributeName resolves an attribute entity id to its db/ident name.
func (h *Handle) AttributeName(id chronicle.EntityId) (string, bool, error) {
	return AttributeName(h.store, id)
}

// HasAttribute is a convenience predicate over Attribute.
func (h *Handle) HasAttribute(name string) (bool, error) {
	return HasAttribute(h.store, name)
}

// AttributeInfo returns schema-level properties (currently just
// cardinality) of the attribute entity id.
func (h *Handle) AttributeInfo(id chronicle.EntityId) (AttributeInfo, error) {
	return GetAttributeInfo(h.store, id)
}

// HighestEID returns the largest entity id observed in partition p.
func (h *Handle) HighestEID(p chronicle.Partition) (chronicle.EntityId, error) {
	return h.store.HighestEID(p)
}

package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/abertram/chronicle"
)

// MemoryStore is an in-memory vector backend: Append copies into a
// guarded slice, Query filters and sorts the whole slice on every
// call. This is the first of the two reference backends §4.1(a)
// requires; no teacher file implements an in-memory Store, so this is
// authored fresh in the teacher's general idiom (exported
// constructor, mutex-guarded, same method set as the other backends).
type MemoryStore struct {
	mu     sync.RWMutex
	datoms []chronicle.Datom
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(datoms []chronicle.Datom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range datoms {
		if d.Status.IsRetracted() && !isLive(m.datoms, d.E, d.A, d.V) {
			// Retracting something not currently live is a
			// programming error (§7), not a normal transact
			// failure; matches the panic SQLStore and BadgerStore
			// raise for the same condition.
			panic(fmt.Sprintf("chronicle: invariant violation: retraction of non-live datom (e=%d a=%d v=%v)", d.E, d.A, d.V))
		}
		m.datoms = append(m.datoms, d)
	}
	return nil
}

// isLive reports whether (e,a,v) is currently live in datoms.
func isLive(datoms []chronicle.Datom, e, a chronicle.EntityId, v chronicle.Value) bool {
	for _, d := range LiveDatoms(datoms) {
		if d.E == e && d.A == a && chronicle.ValuesEqual(d.V, v) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) Query(sel chronicle.Selector) ([]chronicle.Datom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sel.Kind == chronicle.AVET {
		return m.queryIndexed(sel, avetMembers(m.datoms))
	}
	return m.queryIndexed(sel, m.datoms)
}

// queryIndexed filters candidates to the live set, applies sel, and
// sorts the result in sel.Kind's order.
func (m *MemoryStore) queryIndexed(sel chronicle.Selector, candidates []chronicle.Datom) ([]chronicle.Datom, error) {
	live := LiveDatoms(candidates)

	out := make([]chronicle.Datom, 0, len(live))
	for _, d := range live {
		if sel.Matches(d) {
			out = append(out, d)
		}
	}
	sortDatoms(sel.Kind, out)
	return out, nil
}

// sortDatoms orders ds in kind's sort order, in place.
func sortDatoms(kind chronicle.IndexKind, ds []chronicle.Datom) {
	sort.Slice(ds, func(i, j int) bool {
		return chronicle.CompareDatoms(kind, ds[i], ds[j]) < 0
	})
}

func (m *MemoryStore) HighestEID(p chronicle.Partition) (chronicle.EntityId, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return highestEID(m.datoms, p), nil
}

func (m *MemoryStore) Close() error { return nil }

// highestEID scans datoms for the largest entity id (across the E, A
// and Tx positions, since attributes live in the Db partition too)
// belonging to partition p, defaulting to p's base mask.
func highestEID(datoms []chronicle.Datom, p chronicle.Partition) chronicle.EntityId {
	max := p.Mask()
	consider := func(e chronicle.EntityId) {
		if p.Contains(e) && e > max {
			max = e
		}
	}
	for _, d := range datoms {
		consider(d.E)
		consider(d.A)
		consider(d.Tx)
	}
	return max
}

// LiveDatoms reduces a raw datom log to the live set: for every
// distinct (e,a,v) group, the live value is the last (max tx) record
// in the group if its status is Asserted. MemoryStore uses it for its
// queries and its retraction check; SQLStore and BadgerStore track
// liveness in their own storage layout instead.
func LiveDatoms(all []chronicle.Datom) []chronicle.Datom {
	type key struct {
		e chronicle.EntityId
		a chronicle.EntityId
		v interface{}
	}
	groups := make(map[key][]chronicle.Datom)
	order := make([]key, 0)
	for _, d := range all {
		k := key{d.E, d.A, normalizeValueKey(d.V)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}

	out := make([]chronicle.Datom, 0, len(all))
	for _, k := range order {
		g := groups[k]
		// Stable: same-tx ties (e.g. an assertion and an implicit
		// retraction of the same (e,a,v) minted in one transaction)
		// must keep append order, not an arbitrary one.
		sort.SliceStable(g, func(i, j int) bool { return g[i].Tx < g[j].Tx })
		last := g[len(g)-1]
		if last.Status.IsAsserted() {
			out = append(out, last)
		}
	}
	return out
}

// normalizeValueKey makes a Value usable as a Go map key. time.Time
// and int64/string/bool/EntityId are already comparable, so this is
// an identity function kept as a seam in case a future Value variant
// isn't naturally comparable.
func normalizeValueKey(v chronicle.Value) interface{} {
	return v
}

// avetMembers narrows a candidate set to datoms whose attribute is a
// member of the indexed-attribute set. Only db/ident is indexed in
// AVET today (§4.2); IndexedAttributes is a single-element set for
// now but is its own function precisely so the index can be extended
// via schema later without touching every backend.
func avetMembers(all []chronicle.Datom) []chronicle.Datom {
	indexed := IndexedAttributes()
	out := make([]chronicle.Datom, 0, len(all))
	for _, d := range all {
		if indexed[d.A] {
			out = append(out, d)
		}
	}
	return out
}

package storage

import (
	"fmt"
	"time"

	"github.com/abertram/chronicle"
)

// TransactionResult is the record returned by a successful Transact:
// the allocated transaction id and the resolved mapping from each
// temp id in the batch to the EntityId it was allocated.
type TransactionResult struct {
	TxId           chronicle.EntityId
	TempIdMappings map[chronicle.TempId]chronicle.EntityId
}

// Engine runs the §4.4 transaction algorithm against a Store. It
// holds no state of its own between calls: every Transact call
// re-derives tx and partition counters from the store, per the design
// note that highest_eid must come from persisted state, not a process
// counter, so reopening a store preserves monotonicity.
//
// Grounded directly and extensively on original_source/src/sqlite.rs's
// transact(): tx id allocation, db/tx_instant emission, attribute-name
// resolution, temp-id partition-policy resolution, per-assertion
// previous-live-value lookup with ident-change rejection and
// cardinality-1 implicit retraction, one final atomic Append.
type Engine struct {
	store Store
}

// NewEngine returns a transaction engine over store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Transact resolves, validates, and appends a batch of operations.
// On any error the store is left untouched: nothing is appended until
// every operation has been resolved successfully (§4.4 "no partial
// writes").
func (eng *Engine) Transact(ops []Operation) (TransactionResult, error) {
	// Step 1: allocate a fresh transaction id.
	highestTx, err := eng.store.HighestEID(chronicle.PartitionTx)
	if err != nil {
		return TransactionResult{}, &StorageError{Cause: err}
	}
	txId := highestTx + 1

	// Step 3: resolve every referenced attribute name up front. Fails
	// the whole batch on the first unknown name, before any temp id
	// is allocated or any datom constructed.
	resolvedAttrs := make(map[string]chronicle.EntityId)
	for i, op := range ops {
		if op.hasAttrId || op.attrName == "" {
			continue
		}
		if _, ok := resolvedAttrs[op.attrName]; ok {
			continue
		}
		id, found, err := Attribute(eng.store, op.attrName)
		if err != nil {
			return TransactionResult{}, &StorageError{Cause: err}
		}
		if !found {
			ops[i].state = stateFailed
			return TransactionResult{}, &UnknownAttribute{Name: op.attrName}
		}
		resolvedAttrs[op.attrName] = id
	}

	attrIdOf := func(op Operation) chronicle.EntityId {
		if op.hasAttrId {
			return op.attrId
		}
		return resolvedAttrs[op.attrName]
	}
	isBuiltin := func(op Operation) bool {
		if op.hasAttrId {
			return op.attrId != TxInstantAttrID && isBuiltinAttributeID(op.attrId)
		}
		return op.attrName != TxInstantAttrName && IsBuiltinAttributeName(op.attrName)
	}

	// Step 4: resolve temp ids, first-occurrence order, partition
	// chosen by whether the first operation mentioning the temp id
	// uses a built-in schema attribute (db/tx_instant excluded).
	tempIds := make(map[chronicle.TempId]chronicle.EntityId)
	var dbCounter, userCounter chronicle.EntityId
	dbCounterSet, userCounterSet := false, false

	for _, op := range ops {
		if !op.hasTmp {
			continue
		}
		if _, ok := tempIds[op.tempId]; ok {
			continue
		}
		if isBuiltin(op) {
			if !dbCounterSet {
				c, err := eng.store.HighestEID(chronicle.PartitionDb)
				if err != nil {
					return TransactionResult{}, &StorageError{Cause: err}
				}
				dbCounter = c
				dbCounterSet = true
			}
			dbCounter++
			tempIds[op.tempId] = dbCounter
		} else {
			if !userCounterSet {
				c, err := eng.store.HighestEID(chronicle.PartitionUser)
				if err != nil {
					return TransactionResult{}, &StorageError{Cause: err}
				}
				userCounter = c
				userCounterSet = true
			}
			userCounter++
			tempIds[op.tempId] = userCounter
		}
	}

	resolveEntity := func(op Operation) chronicle.EntityId {
		if op.hasTmp {
			return tempIds[op.tempId]
		}
		return op.entity
	}

	// Step 2: the implicit tx metadata datom.
	datoms := []chronicle.Datom{{
		E:      txId,
		A:      TxInstantAttrID,
		V:      chronicle.DateTime(time.Now().UTC()),
		Tx:     txId,
		Status: chronicle.Asserted(),
	}}

	// Step 5 & 6: per-operation resolution. Explicit assertions are
	// collected separately from implicit retractions so the final
	// append orders all explicit assertions before implicit
	// retractions, per §4.4's ordering tie-breaker.
	var assertions, implicitRetractions []chronicle.Datom

	for i := range ops {
		op := ops[i]
		ops[i].state = stateResolved
		e := resolveEntity(op)
		a := attrIdOf(op)

		switch op.kind {
		case opRetract:
			assertions = append(assertions, chronicle.Datom{
				E: e, A: a, V: op.value, Tx: txId, Status: chronicle.Retracted(txId),
			})

		case opAssert, opAssertTempId:
			prev, err := eng.store.Query(chronicle.On(chronicle.EAVT).Entity(e).Attribute(a))
			if err != nil {
				return TransactionResult{}, &StorageError{Cause: err}
			}

			if a == IdentAttrID {
				for _, p := range prev {
					if !chronicle.ValuesEqual(p.V, op.value) {
						oldName, _ := chronicle.AsStr(p.V)
						newName, _ := chronicle.AsStr(op.value)
						ops[i].state = stateFailed
						return TransactionResult{}, &ChangingIdentAttribute{Old: oldName, New: newName}
					}
				}
			}

			info, err := GetAttributeInfo(eng.store, a)
			if err != nil {
				return TransactionResult{}, &StorageError{Cause: err}
			}
			if !info.CardinalityMany {
				for _, p := range prev {
					if chronicle.ValuesEqual(p.V, op.value) {
						// Reasserting the value already live is a
						// no-op retraction-wise: still emit the new
						// assertion below, but don't retract the
						// identical old one out from under it.
						continue
					}
					implicitRetractions = append(implicitRetractions, chronicle.Datom{
						E: e, A: a, V: p.V, Tx: txId, Status: chronicle.Retracted(txId),
					})
				}
			}

			assertions = append(assertions, chronicle.Datom{
				E: e, A: a, V: op.value, Tx: txId, Status: chronicle.Asserted(),
			})

		default:
			ops[i].state = stateFailed
			return TransactionResult{}, fmt.Errorf("chronicle: unknown operation kind %d", op.kind)
		}
	}

	datoms = append(datoms, assertions...)
	datoms = append(datoms, implicitRetractions...)

	// Step 7: one atomic append, including the tx metadata datom —
	// never a separate best-effort append the way the teacher's
	// Database.Commit treats its tx-instant datom.
	if err := eng.store.Append(datoms); err != nil {
		for i := range ops {
			ops[i].state = stateFailed
		}
		return TransactionResult{}, &StorageError{Cause: err}
	}
	for i := range ops {
		ops[i].state = stateEmitted
	}

	return TransactionResult{TxId: txId, TempIdMappings: tempIds}, nil
}

func isBuiltinAttributeID(id chronicle.EntityId) bool {
	for _, builtinId := range builtinAttributeIDs {
		if builtinId == id {
			return true
		}
	}
	return false
}

package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/abertram/chronicle"
)

// BadgerStore is the third, bonus reference backend: an embedded
// ordered key/value engine, the teacher's primary dependency. Every
// live datom is stored under a 'D' key; a parallel 'L' "live pointer"
// keyspace records which tx currently holds each (e,a,v) live, so a
// retraction can find and delete the corresponding 'D' entry without
// needing the original assertion's tx passed back in.
//
// Grounded on the teacher's datalog/storage/badger_store.go: one
// Update per Append batch and an iterator-based scan. Options are
// badger's defaults with logging switched off; Query walks the whole
// 'D' keyspace and collects every match before sorting.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if needed) a Badger-backed store at
// dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("chronicle: open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) Append(datoms []chronicle.Datom) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, d := range datoms {
			if d.Status.IsAsserted() {
				if err := b.assertDatom(txn, d); err != nil {
					return err
				}
			} else {
				if err := b.retractDatom(txn, d); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (b *BadgerStore) assertDatom(txn *badger.Txn, d chronicle.Datom) error {
	dk, err := datomKey(d.E, d.A, d.V, d.Tx)
	if err != nil {
		return err
	}
	vb, err := EncodeValue(d.V) // the encoded Value; decodeItem reads the datom back from the key alone
	if err != nil {
		return err
	}
	if err := txn.Set(dk, vb); err != nil {
		return fmt.Errorf("chronicle: badger write datom: %w", err)
	}

	lk, err := livePtrKey(d.E, d.A, d.V)
	if err != nil {
		return err
	}
	// Reasserting a live (e,a,v) at a new tx replaces its older 'D'
	// entry, so the 'L' pointer always names the only one.
	if item, gerr := txn.Get(lk); gerr == nil {
		prevTx := d.Tx
		if err := item.Value(func(val []byte) (derr error) { prevTx, derr = decodeTxValue(val); return }); err != nil {
			return err
		}
		if old, _ := datomKey(d.E, d.A, d.V, prevTx); prevTx != d.Tx {
			if err := txn.Delete(old); err != nil {
				return fmt.Errorf("chronicle: badger delete superseded datom: %w", err)
			}
		}
	} else if gerr != badger.ErrKeyNotFound {
		return fmt.Errorf("chronicle: badger read live pointer: %w", gerr)
	}
	if err := txn.Set(lk, encodeTxValue(d.Tx)); err != nil {
		return fmt.Errorf("chronicle: badger write live pointer: %w", err)
	}
	return nil
}

func (b *BadgerStore) retractDatom(txn *badger.Txn, d chronicle.Datom) error {
	lk, err := livePtrKey(d.E, d.A, d.V)
	if err != nil {
		return err
	}
	item, err := txn.Get(lk)
	if err == badger.ErrKeyNotFound {
		// Retracting something not currently live is a programming
		// error (§7), not a normal transact failure.
		panic(fmt.Sprintf("chronicle: invariant violation: retraction of non-live datom (e=%d a=%d v=%v)", d.E, d.A, d.V))
	}
	if err != nil {
		return fmt.Errorf("chronicle: badger read live pointer: %w", err)
	}

	var liveTx chronicle.EntityId
	if err := item.Value(func(val []byte) error {
		liveTx, err = decodeTxValue(val)
		return err
	}); err != nil {
		return err
	}

	dk, err := datomKey(d.E, d.A, d.V, liveTx)
	if err != nil {
		return err
	}
	if err := txn.Delete(dk); err != nil {
		return fmt.Errorf("chronicle: badger delete datom: %w", err)
	}
	if err := txn.Delete(lk); err != nil {
		return fmt.Errorf("chronicle: badger delete live pointer: %w", err)
	}
	return nil
}

func (b *BadgerStore) Query(sel chronicle.Selector) ([]chronicle.Datom, error) {
	var out []chronicle.Datom
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixDatom}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			d, err := b.decodeItem(item)
			if err != nil {
				return err
			}
			if sel.Kind == chronicle.AVET && !IndexedAttributes()[d.A] {
				continue
			}
			if sel.Matches(d) {
				out = append(out, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chronicle: badger query: %w", err)
	}
	sortDatoms(sel.Kind, out)
	return out, nil
}

func (b *BadgerStore) decodeItem(item *badger.Item) (chronicle.Datom, error) {
	key := item.KeyCopy(nil)
	// key layout: 'D' + e(8) + a(8) + len(v)(4) + v + tx(8)
	if len(key) < 1+8+8+4+8 {
		return chronicle.Datom{}, fmt.Errorf("chronicle: malformed badger key (%d bytes)", len(key))
	}
	e := decodeEID(key[1:9])
	a := decodeEID(key[9:17])
	vlen := int(binary.BigEndian.Uint32(key[17:21]))
	vStart, vEnd := 21, 21+vlen
	if len(key) < vEnd+8 {
		return chronicle.Datom{}, fmt.Errorf("chronicle: malformed badger key value length")
	}
	v, err := DecodeValue(key[vStart:vEnd])
	if err != nil {
		return chronicle.Datom{}, err
	}
	tx := decodeEID(key[vEnd : vEnd+8])

	return chronicle.Datom{E: e, A: a, V: v, Tx: tx, Status: chronicle.Asserted()}, nil
}

func (b *BadgerStore) HighestEID(p chronicle.Partition) (chronicle.EntityId, error) {
	max := p.Mask()
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixDatom}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) < 17 {
				continue
			}
			e := decodeEID(key[1:9])
			a := decodeEID(key[9:17])
			if p.Contains(e) && e > max {
				max = e
			}
			if p.Contains(a) && a > max {
				max = a
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("chronicle: badger highest_eid: %w", err)
	}
	return max, nil
}

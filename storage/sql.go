package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abertram/chronicle"
)

// SQLStore is the relational reference backend required by §4.1(b)
// and the persisted layout of §6: a single datoms(e,a,v,t,retracted_tx)
// table plus unique_attributes(e) enumerating the AVET membership.
//
// Grounded on original_source/src/sqlite.rs for the algorithm and SQL
// shape (initialize, highest_eid, store_datoms's retraction UPDATE
// excluding the current tx's own rows, the dynamic prefix-filter
// SELECT), and on AntoineToussaint-timeoff/store/sqlite/sqlite.go for
// the Go-idiomatic wrapper (database/sql + mattn/go-sqlite3,
// migrate-on-open, mutex-guarded *sql.DB).
type SQLStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLStore opens (creating if needed) a SQLite-backed store at
// path. Use ":memory:" for a throwaway relational store.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("chronicle: open sqlite store: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("chronicle: migrate sqlite store: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS datoms (
		e INTEGER NOT NULL,
		a INTEGER NOT NULL,
		v BLOB NOT NULL,
		t INTEGER NOT NULL,
		retracted_tx INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_datoms_eavt ON datoms(e, a, v, t);
	CREATE INDEX IF NOT EXISTS idx_datoms_aevt ON datoms(a, e, v, t);

	CREATE TABLE IF NOT EXISTS unique_attributes (
		e INTEGER PRIMARY KEY
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	for id := range IndexedAttributes() {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO unique_attributes (e) VALUES (?)`, int64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Append(datoms []chronicle.Datom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("chronicle: begin sqlite tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	insert, err := tx.Prepare(`INSERT INTO datoms (e, a, v, t) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	// Assertions first, then retraction UPDATEs — matches
	// store_datoms's two-pass partition, which is what makes the
	// "exclude the current tx's own rows" exclusion in the UPDATE
	// below correct (the row being retracted, if inserted by this
	// same batch, would otherwise be immediately re-targeted).
	for _, d := range datoms {
		if d.Status.IsRetracted() {
			continue
		}
		vb, err := EncodeValue(d.V)
		if err != nil {
			return err
		}
		if _, err := insert.Exec(int64(d.E), int64(d.A), vb, int64(d.Tx)); err != nil {
			return fmt.Errorf("chronicle: insert datom: %w", err)
		}
	}

	update, err := tx.Prepare(`UPDATE datoms SET retracted_tx = ? WHERE e = ? AND a = ? AND v = ? AND t != ? AND retracted_tx IS NULL`)
	if err != nil {
		return err
	}
	defer update.Close()

	for _, d := range datoms {
		if d.Status.IsAsserted() {
			continue
		}
		retractingTx, _ := d.Status.RetractionTx()
		vb, err := EncodeValue(d.V)
		if err != nil {
			return err
		}
		res, err := update.Exec(int64(retractingTx), int64(d.E), int64(d.A), vb, int64(retractingTx))
		if err != nil {
			return fmt.Errorf("chronicle: retract datom: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// Retracting something not currently live is a
			// programming error (§7), not a normal transact
			// failure; surfaced loudly rather than silently
			// ignored.
			panic(fmt.Sprintf("chronicle: invariant violation: retraction of non-live datom (e=%d a=%d v=%v)", d.E, d.A, d.V))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chronicle: commit sqlite tx: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) Query(sel chronicle.Selector) ([]chronicle.Datom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	args := make([]interface{}, 0, 5)

	b.WriteString("SELECT DISTINCT d.e, d.a, d.v, d.t FROM datoms d ")
	if sel.Kind == chronicle.AVET {
		b.WriteString("JOIN unique_attributes u ON u.e = d.a ")
	}
	b.WriteString("WHERE d.retracted_tx IS NULL ")

	if sel.E != nil {
		b.WriteString("AND d.e = ? ")
		args = append(args, int64(*sel.E))
	}
	if sel.A != nil {
		b.WriteString("AND d.a = ? ")
		args = append(args, int64(*sel.A))
	}
	if sel.V != nil {
		vb, err := EncodeValue(*sel.V)
		if err != nil {
			return nil, err
		}
		b.WriteString("AND d.v = ? ")
		args = append(args, vb)
	}
	if sel.Tx != nil {
		b.WriteString("AND d.t = ? ")
		args = append(args, int64(*sel.Tx))
	}

	switch sel.Kind {
	case chronicle.AEVT:
		b.WriteString("ORDER BY d.a, d.e, d.v, d.t")
	case chronicle.AVET:
		b.WriteString("ORDER BY d.a, d.v, d.e, d.t")
	default:
		b.WriteString("ORDER BY d.e, d.a, d.v, d.t")
	}

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("chronicle: query sqlite store: %w", err)
	}
	defer rows.Close()

	var out []chronicle.Datom
	for rows.Next() {
		var e, a, t int64
		var vb []byte
		if err := rows.Scan(&e, &a, &vb, &t); err != nil {
			return nil, err
		}
		v, err := DecodeValue(vb)
		if err != nil {
			return nil, err
		}
		out = append(out, chronicle.Datom{
			E: chronicle.EntityId(e), A: chronicle.EntityId(a), V: v, Tx: chronicle.EntityId(t),
			Status: chronicle.Asserted(),
		})
	}

	// ORDER BY d.v compares the encoded JSON bytes, which do not follow
	// CompareValues (tags sort alphabetically, and Int 10 sorts before
	// Int 9), so the rows are re-sorted with CompareDatoms.
	sortDatoms(sel.Kind, out)
	return out, nil
}

func (s *SQLStore) HighestEID(p chronicle.Partition) (chronicle.EntityId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mask := int64(p.Mask())
	row := s.db.QueryRow(`SELECT COALESCE(MAX(e), 0) FROM datoms WHERE e >= ? AND (e & ?) = ?`, mask, mask, mask)
	var max int64
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("chronicle: highest_eid query: %w", err)
	}
	if max < mask {
		max = mask
	}
	return chronicle.EntityId(max), nil
}

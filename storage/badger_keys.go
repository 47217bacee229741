package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/abertram/chronicle"
)

// Badger key layout. Two keyspaces:
//
//   'D' + e(8) + a(8) + len(v)(4) + v + tx(8)  -> encoded Value
//       one entry per currently-live (e,a,v), at the tx that last
//       asserted it.
//   'L' + e(8) + a(8) + len(v)(4) + v          -> tx(8)
//       "live pointer": which tx currently holds (e,a,v) live, so a
//       retraction (which only names (e,a,v), not the original
//       assertion's tx) can find and delete the right 'D' entry.
//
// Adapted from the teacher's datalog/storage/badger_store.go /
// key_encoder_binary.go fixed-width key style, re-keyed for int64
// EntityIds instead of 20-byte content hashes, and extended with the
// 'L' keyspace the teacher never needed (its Identity-keyed design
// had no separate "find the original tx" problem to solve).
const (
	prefixDatom   = 'D'
	prefixLivePtr = 'L'
)

func encodeEID(e chronicle.EntityId) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(e))
	return b
}

func decodeEID(b []byte) chronicle.EntityId {
	return chronicle.EntityId(binary.BigEndian.Uint64(b))
}

func evKeyBody(e, a chronicle.EntityId, v chronicle.Value) ([]byte, error) {
	vb, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, 8+8+4+len(vb))
	body = append(body, encodeEID(e)...)
	body = append(body, encodeEID(a)...)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(vb)))
	body = append(body, lenBuf...)
	body = append(body, vb...)
	return body, nil
}

// livePtrKey is the 'L' key for (e,a,v).
func livePtrKey(e, a chronicle.EntityId, v chronicle.Value) ([]byte, error) {
	body, err := evKeyBody(e, a, v)
	if err != nil {
		return nil, err
	}
	return append([]byte{prefixLivePtr}, body...), nil
}

// datomKey is the 'D' key for (e,a,v,tx).
func datomKey(e, a chronicle.EntityId, v chronicle.Value, tx chronicle.EntityId) ([]byte, error) {
	body, err := evKeyBody(e, a, v)
	if err != nil {
		return nil, err
	}
	key := append([]byte{prefixDatom}, body...)
	key = append(key, encodeEID(tx)...)
	return key, nil
}

func encodeTxValue(tx chronicle.EntityId) []byte {
	return encodeEID(tx)
}

func decodeTxValue(b []byte) (chronicle.EntityId, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("chronicle: malformed live-pointer value (%d bytes)", len(b))
	}
	return decodeEID(b), nil
}

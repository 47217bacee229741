package chronicle

import "fmt"

// EntityId identifies any addressable thing in the database: a user
// entity, an attribute, or a transaction. Ids are allocated from one
// Partition; membership is tested with Partition.Contains, which only
// checks that partition's mask bit (the bootstrap tx id 0 is in none).
type EntityId int64

// TempId stands in for an entity that has not yet been allocated. It
// is resolved to an EntityId by the transaction engine before any
// datom referencing it is persisted.
type TempId int64

// Partition is a disjoint subrange of EntityId space, identified by a
// single bit mask. For every allocated id e belonging to partition P,
// (e & Mask()) == Mask().
type Partition uint8

const (
	// PartitionDb holds schema entities: attributes and their metadata.
	PartitionDb Partition = iota
	// PartitionTx holds transaction entities.
	PartitionTx
	// PartitionUser holds application data entities.
	PartitionUser
)

// Mask returns the partition's base bit mask. Masks are strictly
// increasing, non-overlapping powers of two, following the concrete
// choice in the data model: Db = 1<<11, Tx = 1<<33, User = 1<<49.
func (p Partition) Mask() EntityId {
	switch p {
	case PartitionDb:
		return 1 << 11
	case PartitionTx:
		return 1 << 33
	case PartitionUser:
		return 1 << 49
	default:
		panic(fmt.Sprintf("chronicle: unknown partition %d", p))
	}
}

// Contains reports whether e belongs to partition p.
func (p Partition) Contains(e EntityId) bool {
	m := p.Mask()
	return e&m == m
}

func (p Partition) String() string {
	switch p {
	case PartitionDb:
		return "db"
	case PartitionTx:
		return "tx"
	case PartitionUser:
		return "user"
	default:
		return fmt.Sprintf("partition(%d)", uint8(p))
	}
}

// Partitions lists every partition, in a stable order.
func Partitions() []Partition {
	return []Partition{PartitionDb, PartitionTx, PartitionUser}
}

package chronicle

import "testing"

func TestPartitionMaskMembership(t *testing.T) {
	for _, p := range Partitions() {
		m := p.Mask()
		if !p.Contains(m) {
			t.Errorf("partition %s does not contain its own mask %d", p, m)
		}
		if p.Contains(m - 1) {
			t.Errorf("partition %s unexpectedly contains %d", p, m-1)
		}
		if !p.Contains(m | 7) {
			t.Errorf("partition %s should contain %d (mask with low bits set)", p, m|7)
		}
	}
}

func TestPartitionsAreDistinct(t *testing.T) {
	seen := make(map[EntityId]Partition)
	for _, p := range Partitions() {
		m := p.Mask()
		if other, ok := seen[m]; ok {
			t.Fatalf("partitions %s and %s share mask %d", p, other, m)
		}
		seen[m] = p
	}
}

func TestPartitionStringAndPanic(t *testing.T) {
	if PartitionDb.String() != "db" {
		t.Errorf("expected \"db\", got %q", PartitionDb.String())
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown partition mask")
		}
	}()
	Partition(99).Mask()
}

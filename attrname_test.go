package chronicle

import "testing"

func TestInternAttributeNameSharesStorage(t *testing.T) {
	a := InternAttributeName("person/name")
	b := InternAttributeName("person/name")
	if a != b {
		t.Error("expected repeated interning of the same name to return the same pointer")
	}
	if *a != "person/name" {
		t.Errorf("expected interned value %q, got %q", "person/name", *a)
	}

	c := InternAttributeName("person/age")
	if a == c {
		t.Error("expected distinct names to intern to distinct pointers")
	}
}

package chronicle

import "fmt"

// Status is either Asserted or Retracted(tx), where tx is the
// transaction that observed the retraction. A retraction is itself a
// new datom, never an in-place mutation of the asserted one.
type Status struct {
	retracted bool
	tx        EntityId
}

// Asserted returns the live status.
func Asserted() Status { return Status{} }

// Retracted returns a retraction status naming the tx that retracted it.
func Retracted(tx EntityId) Status { return Status{retracted: true, tx: tx} }

// IsAsserted reports whether s is the live status.
func (s Status) IsAsserted() bool { return !s.retracted }

// IsRetracted reports whether s is a retraction.
func (s Status) IsRetracted() bool { return s.retracted }

// RetractionTx returns the tx that retracted this datom, if s is a
// retraction.
func (s Status) RetractionTx() (EntityId, bool) {
	return s.tx, s.retracted
}

func (s Status) String() string {
	if s.retracted {
		return fmt.Sprintf("retracted@%d", s.tx)
	}
	return "asserted"
}

// Datom is the immutable 5-tuple (entity, attribute, value, tx,
// status) — the atomic fact. Two datoms with identical fields are
// equal; Datom carries no identity beyond its fields.
type Datom struct {
	E      EntityId
	A      EntityId
	V      Value
	Tx     EntityId
	Status Status
}

func (d Datom) String() string {
	return fmt.Sprintf("(%d %d %v %d %s)", d.E, d.A, d.V, d.Tx, d.Status)
}

// Equal reports whether d and o have identical fields.
func (d Datom) Equal(o Datom) bool {
	return d.E == o.E && d.A == o.A && d.Tx == o.Tx && d.Status == o.Status && ValuesEqual(d.V, o.V)
}

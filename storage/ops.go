package storage

import (
	"fmt"

	"github.com/abertram/chronicle"
)

// opKind tags which of the three Operation variants a value holds.
type opKind int

const (
	opAssert opKind = iota
	opRetract
	opAssertTempId
)

// opState is the operation's position in its Pending -> Resolved ->
// Emitted | Failed state machine (§4.6). Engine.Transact drives every
// operation through these states; a Failed operation aborts the whole
// batch before anything reaches Store.Append.
type opState int

const (
	statePending opState = iota
	stateResolved
	stateEmitted
	stateFailed
)

// Operation is one entry of a transaction batch: Assert(entity,
// attribute, value), Retract(entity, attribute, value), or
// AssertWithTempId(tempid, attribute, value). Attribute is accepted
// either as a string name (resolved during processing) or directly as
// an attribute EntityId.
type Operation struct {
	kind opKind

	entity chronicle.EntityId
	tempId chronicle.TempId
	hasTmp bool

	attrName  string
	attrId    chronicle.EntityId
	hasAttrId bool

	value chronicle.Value

	state opState
}

// Assert builds an Assert(entity_id, attribute, value) operation. attr
// may be a string attribute name or a chronicle.EntityId naming the
// attribute entity directly. value may be any type with a defined
// coercion into the Value union (see chronicle.CoerceValue).
func Assert(entity chronicle.EntityId, attr interface{}, value interface{}) (Operation, error) {
	return newOp(opAssert, entity, 0, false, attr, value)
}

// Retract builds a Retract(entity_id, attribute, value) operation.
func Retract(entity chronicle.EntityId, attr interface{}, value interface{}) (Operation, error) {
	return newOp(opRetract, entity, 0, false, attr, value)
}

// AssertWithTempId builds an AssertWithTempId(temp_id, attribute,
// value) operation.
func AssertWithTempId(tempId chronicle.TempId, attr interface{}, value interface{}) (Operation, error) {
	return newOp(opAssertTempId, 0, tempId, true, attr, value)
}

func newOp(kind opKind, entity chronicle.EntityId, tempId chronicle.TempId, hasTmp bool, attr interface{}, value interface{}) (Operation, error) {
	v, err := chronicle.CoerceValue(value)
	if err != nil {
		return Operation{}, err
	}

	op := Operation{
		kind:   kind,
		entity: entity,
		tempId: tempId,
		hasTmp: hasTmp,
		value:  v,
		state:  statePending,
	}

	switch a := attr.(type) {
	case string:
		op.attrName = *chronicle.InternAttributeName(a)
	case chronicle.EntityId:
		op.attrId = a
		op.hasAttrId = true
		op.attrName = "" // the engine uses attrId directly; no name is looked up
	default:
		return Operation{}, fmt.Errorf("chronicle: attribute must be a string name or chronicle.EntityId, got %T", attr)
	}
	return op, nil
}

// AttributeName returns the string name this operation was built
// with, or "" if it was built with a direct attribute EntityId.
func (o Operation) AttributeName() string { return o.attrName }

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abertram/chronicle"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func declareAttribute(t *testing.T, h *Handle, name string, cardinalityMany bool) chronicle.EntityId {
	t.Helper()
	tmp := h.TempId()
	ops := []Operation{}
	op, err := AssertWithTempId(tmp, IdentAttrName, name)
	require.NoError(t, err)
	ops = append(ops, op)
	if cardinalityMany {
		op, err = AssertWithTempId(tmp, CardinalityManyAttrName, true)
		require.NoError(t, err)
		ops = append(ops, op)
	}
	res, err := h.Transact(ops)
	require.NoError(t, err)
	return res.TempIdMappings[tmp]
}

func TestTransactBootstrapsSchemaBeforeAnyData(t *testing.T) {
	h := newTestHandle(t)
	ok, err := h.HasAttribute(IdentAttrName)
	require.NoError(t, err)
	assert.True(t, ok, "a fresh handle should already have db/ident resolvable")
}

func TestTransactSchemaThenData(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)

	entity := h.TempId()
	op, err := AssertWithTempId(entity, "person/name", "Alice")
	require.NoError(t, err)
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)

	snap, err := h.Entity(res.TempIdMappings[entity])
	require.NoError(t, err)
	assert.Equal(t, chronicle.Str("Alice"), snap.Get("person/name"))
}

func TestTransactSingleCardinalityOverwriteRetractsOldValue(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)

	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)
	id := res.TempIdMappings[entity]

	op2, _ := Assert(id, "person/name", "Alicia")
	_, err = h.Transact([]Operation{op2})
	require.NoError(t, err)

	snap, err := h.Entity(id)
	require.NoError(t, err)
	assert.Equal(t, []chronicle.Value{chronicle.Str("Alicia")}, snap.GetMany("person/name"))
}

func TestTransactCardinalityManyAccumulates(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/alias", true)

	entity := h.TempId()
	op1, _ := AssertWithTempId(entity, "person/alias", "Al")
	res, err := h.Transact([]Operation{op1})
	require.NoError(t, err)
	id := res.TempIdMappings[entity]

	op2, _ := Assert(id, "person/alias", "Ali")
	_, err = h.Transact([]Operation{op2})
	require.NoError(t, err)

	snap, err := h.Entity(id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []chronicle.Value{chronicle.Str("Al"), chronicle.Str("Ali")}, snap.GetMany("person/alias"))
}

func TestTransactRetraction(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)

	entity := h.TempId()
	op1, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op1})
	require.NoError(t, err)
	id := res.TempIdMappings[entity]

	op2, _ := Retract(id, "person/name", "Alice")
	_, err = h.Transact([]Operation{op2})
	require.NoError(t, err)

	snap, err := h.Entity(id)
	require.NoError(t, err)
	assert.Nil(t, snap.Get("person/name"))
}

func TestTransactReassertingIdenticalValueIsIdempotent(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)

	entity := h.TempId()
	op1, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op1})
	require.NoError(t, err)
	id := res.TempIdMappings[entity]

	op2, _ := Assert(id, "person/name", "Alice")
	_, err = h.Transact([]Operation{op2})
	require.NoError(t, err)

	snap, err := h.Entity(id)
	require.NoError(t, err)
	assert.Equal(t, chronicle.Str("Alice"), snap.Get("person/name"))

	attrId, ok, err := h.Attribute("person/name")
	require.NoError(t, err)
	require.True(t, ok)

	ds, err := h.Datoms(chronicle.On(chronicle.EAVT).Entity(id).Attribute(attrId))
	require.NoError(t, err)
	assert.Len(t, ds, 1, "reasserting an identical value must not retract it")
}

func TestTransactRejectsIdentChange(t *testing.T) {
	h := newTestHandle(t)
	attrId := declareAttribute(t, h, "person/name", false)

	op, _ := Assert(attrId, IdentAttrName, "person/full-name")
	_, err := h.Transact([]Operation{op})
	require.Error(t, err)
	var identErr *ChangingIdentAttribute
	assert.ErrorAs(t, err, &identErr)
}

func TestTransactRejectsUnknownAttribute(t *testing.T) {
	h := newTestHandle(t)
	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "no/such-attribute", "x")
	_, err := h.Transact([]Operation{op})
	require.Error(t, err)
	var unknownErr *UnknownAttribute
	assert.ErrorAs(t, err, &unknownErr)
}

func TestTransactAllocatesEachTempIdOncePerPartitionPolicy(t *testing.T) {
	h := newTestHandle(t)
	schemaTmp := h.TempId()
	op, _ := AssertWithTempId(schemaTmp, IdentAttrName, "widget/kind")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)

	assert.True(t, chronicle.PartitionDb.Contains(res.TempIdMappings[schemaTmp]),
		"a temp id asserted via db/ident should land in the Db partition")

	declareAttribute(t, h, "widget/name", false)
	userTmp := h.TempId()
	op2, _ := AssertWithTempId(userTmp, "widget/name", "sprocket")
	res2, err := h.Transact([]Operation{op2})
	require.NoError(t, err)
	assert.True(t, chronicle.PartitionUser.Contains(res2.TempIdMappings[userTmp]),
		"a temp id asserted via a user-defined attribute should land in the User partition")
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abertram/chronicle"
)

func TestGetEntityUnknownIdIsEmpty(t *testing.T) {
	h := newTestHandle(t)
	snap, err := h.Entity(chronicle.PartitionUser.Mask() | 12345)
	require.NoError(t, err)
	assert.Empty(t, snap.Values(), "an entity with no live datoms should yield an empty mapping, not an error")
}

func TestGetEntityIncludesSynthesizedDbId(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)
	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)
	id := res.TempIdMappings[entity]

	snap, err := h.Entity(id)
	require.NoError(t, err)
	assert.Equal(t, []chronicle.Value{chronicle.Ref(id)}, snap.GetMany(IdAttrName))
}

func TestEntitySnapshotGetReturnsNilForMissingAttribute(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)
	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)

	snap, err := h.Entity(res.TempIdMappings[entity])
	require.NoError(t, err)
	assert.Nil(t, snap.Get("person/nonexistent"))
}

func TestFollowRefDereferencesARefAttribute(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)
	declareAttribute(t, h, "person/best-friend", false)

	alice := h.TempId()
	op1, _ := AssertWithTempId(alice, "person/name", "Alice")
	res1, err := h.Transact([]Operation{op1})
	require.NoError(t, err)
	aliceId := res1.TempIdMappings[alice]

	bob := h.TempId()
	op2, _ := AssertWithTempId(bob, "person/name", "Bob")
	res2, err := h.Transact([]Operation{op2})
	require.NoError(t, err)
	bobId := res2.TempIdMappings[bob]

	op3, _ := Assert(aliceId, "person/best-friend", bobId)
	_, err = h.Transact([]Operation{op3})
	require.NoError(t, err)

	aliceSnap, err := h.Entity(aliceId)
	require.NoError(t, err)
	friend, err := aliceSnap.FollowRef("person/best-friend")
	require.NoError(t, err)
	assert.Equal(t, chronicle.Str("Bob"), friend.Get("person/name"))
}

func TestFollowRefErrorsOnNonRefAttribute(t *testing.T) {
	h := newTestHandle(t)
	declareAttribute(t, h, "person/name", false)
	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)

	snap, err := h.Entity(res.TempIdMappings[entity])
	require.NoError(t, err)
	_, err = snap.FollowRef("person/name")
	assert.ErrorIs(t, err, ErrNotRef)
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abertram/chronicle"
)

func TestBadgerStoreAppendQueryRetract(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Bootstrap(s))

	d := chronicle.Datom{E: 1, A: IdAttrID, V: chronicle.Str("x"), Tx: 1, Status: chronicle.Asserted()}
	require.NoError(t, s.Append([]chronicle.Datom{d}))

	got, err := s.Query(chronicle.On(chronicle.EAVT).Entity(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, chronicle.ValuesEqual(got[0].V, chronicle.Str("x")))

	r := chronicle.Datom{E: 1, A: IdAttrID, V: chronicle.Str("x"), Tx: 2, Status: chronicle.Retracted(2)}
	require.NoError(t, s.Append([]chronicle.Datom{r}))

	got, err = s.Query(chronicle.On(chronicle.EAVT).Entity(1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadgerStoreRetractionOfNonLiveDatomPanics(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	defer func() {
		if recover() == nil {
			t.Error("expected a panic retracting a datom that was never asserted")
		}
	}()
	r := chronicle.Datom{E: 1, A: 2, V: chronicle.Int(5), Tx: 1, Status: chronicle.Retracted(1)}
	s.Append([]chronicle.Datom{r})
}

func TestBadgerStoreFullHandleRoundTrip(t *testing.T) {
	h, err := Open(BackendBadger, t.TempDir())
	require.NoError(t, err)
	defer h.Close()

	declareAttribute(t, h, "person/name", false)
	entity := h.TempId()
	op, _ := AssertWithTempId(entity, "person/name", "Alice")
	res, err := h.Transact([]Operation{op})
	require.NoError(t, err)

	snap, err := h.Entity(res.TempIdMappings[entity])
	require.NoError(t, err)
	assert.Equal(t, chronicle.Str("Alice"), snap.Get("person/name"))
}

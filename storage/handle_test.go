package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abertram/chronicle"
)

func TestTempIdIsUniquePerHandle(t *testing.T) {
	h := newTestHandle(t)
	a := h.TempId()
	b := h.TempId()
	assert.NotEqual(t, a, b)
}

func TestHandleDatomsRunsARawIndexQuery(t *testing.T) {
	h := newTestHandle(t)
	ds, err := h.Datoms(chronicle.On(chronicle.AVET).Attribute(IdentAttrID).Value(chronicle.Str(IdentAttrName)))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, IdentAttrID, ds[0].E)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(Backend(99), t.TempDir())
	assert.Error(t, err)
}

func TestHandleHighestEIDDelegatesToStore(t *testing.T) {
	h := newTestHandle(t)
	max, err := h.HighestEID(chronicle.PartitionDb)
	require.NoError(t, err)
	assert.True(t, chronicle.PartitionDb.Contains(max))
}

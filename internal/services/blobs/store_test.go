package blobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore(arbor.NewLogger())

	ref := store.Put("application/pdf", []byte("%PDF"))
	assert.Regexp(t, `^blob:`, ref)
	assert.Equal(t, 1, store.Len())

	mediaType, data, ok := store.Get(ref)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", mediaType)
	assert.Equal(t, []byte("%PDF"), data)

	store.Release(ref)
	_, _, ok = store.Get(ref)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	// Releasing twice or releasing nothing is harmless
	store.Release(ref)
	store.Release("")
}

func TestStore_ReleaseAll(t *testing.T) {
	store := NewStore(arbor.NewLogger())
	a := store.Put("image/png", []byte{1})
	b := store.Put("image/png", []byte{2})
	assert.NotEqual(t, a, b)

	store.ReleaseAll()
	assert.Equal(t, 0, store.Len())
	_, _, ok := store.Get(a)
	assert.False(t, ok)
}

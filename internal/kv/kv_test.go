package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "sessions", []byte(`{"version":2}`)))
	got, err := store.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":2}`), got)

	// Overwrite.
	require.NoError(t, store.Set(ctx, "sessions", []byte(`{"version":2,"sessions":[]}`)))
	got, err = store.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":2,"sessions":[]}`), got)

	// Delete is idempotent.
	require.NoError(t, store.Delete(ctx, "sessions"))
	require.NoError(t, store.Delete(ctx, "sessions"))
	_, err = store.Get(ctx, "sessions")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStore(t, store)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "theme", []byte("dark")))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("dark"), got)
}

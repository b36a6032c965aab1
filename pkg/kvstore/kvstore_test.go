package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	require.NoError(t, store.Put(ctx,
		Entry{Key: "a", Value: []byte(`{"lg":[]}`)},
		Entry{Key: "b", Value: []byte(`[]`)},
	))
	value, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"lg":[]}`, string(value))

	require.NoError(t, store.Put(ctx, Entry{Key: "a", Value: []byte(`{"md":[]}`)}))
	value, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"md":[]}`, string(value))

	require.NoError(t, store.Delete(ctx, "a", "b"))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	raw := []byte("abc")
	require.NoError(t, store.Put(ctx, Entry{Key: "k", Value: raw}))
	raw[0] = 'z'
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	value[1] = 'z'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "dashboardai.db")
	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, Entry{Key: "layouts", Value: []byte(`{"lg":[{"i":"w1"}]}`)}))
	require.NoError(t, store.Close(ctx))

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close(ctx) })
	value, err := reopened.Get(ctx, "layouts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lg":[{"i":"w1"}]}`, string(value))
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/family-catalog/internal/apperror"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("CATALOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CATALOG_TEST_POSTGRES_DSN not set")
	}

	store, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

// node returns a top-level node name unique to this run and removes
// everything below it afterwards.
func node(t *testing.T, store *Store) string {
	t.Helper()
	n := "test" + xid.New().String()
	t.Cleanup(func() {
		ctx := context.Background()
		store.pool.Exec(ctx, `DELETE FROM kv WHERE path LIKE $1`, n+"%")
	})
	return n
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), node(t, store)+"/missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := node(t, store) + "/k"

	require.NoError(t, store.Set(ctx, path, []byte("one")))
	require.NoError(t, store.Set(ctx, path, []byte("two")))

	got, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, store.Delete(ctx, path))
	require.NoError(t, store.Delete(ctx, path))
}

func TestListOnlyBelowPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	n := node(t, store)

	require.NoError(t, store.Set(ctx, n+"/a", []byte("1")))
	require.NoError(t, store.Set(ctx, n+"/b/c", []byte("2")))
	require.NoError(t, store.Set(ctx, n+"x/d", []byte("3")))

	got, err := store.List(ctx, n)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, n+"/a")
	assert.Contains(t, got, n+"/b/c")
}

package devicestore_test

import (
	"context"
	"testing"

	"github.com/pocketmall/shopdata/internal/infrastructure/devicestore"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	v, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	v, _, _ = store.Get(ctx, "k")
	require.Equal(t, []byte("v2"), v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, _ = store.Get(ctx, "k")
	require.False(t, found)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()

	original := []byte("value")
	require.NoError(t, store.Set(ctx, "k", original))
	original[0] = 'X'

	v, _, _ := store.Get(ctx, "k")
	require.Equal(t, []byte("value"), v)

	v[0] = 'Y'
	again, _, _ := store.Get(ctx, "k")
	require.Equal(t, []byte("value"), again)
}

func TestMemoryStore_KeysFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "cart_backup_1", nil))
	require.NoError(t, store.Set(ctx, "cart_backup_2", nil))
	require.NoError(t, store.Set(ctx, "cart_items", nil))

	keys, err := store.Keys(ctx, "cart_backup_")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cart_backup_1", "cart_backup_2"}, keys)
}

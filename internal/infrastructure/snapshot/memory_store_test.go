package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/session"
)

func testSnapshot(step int) *session.Snapshot {
	return &session.Snapshot{
		CheckoutStep: step,
		SavedAt:      time.Now(),
	}
}

func TestInMemoryStore(t *testing.T) {
	t.Run("save and load", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(2)))

		loaded, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 2, loaded.CheckoutStep)
	})

	t.Run("load of a missing session returns nil", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		defer store.Close()

		loaded, err := store.Load(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("save overwrites and resets the ttl", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(1)))
		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(3)))

		loaded, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 3, loaded.CheckoutStep)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("loaded snapshot is a copy", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(1)))
		first, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		first.CheckoutStep = 4

		second, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, 1, second.CheckoutStep)
	})

	t.Run("expired entries are not served", func(t *testing.T) {
		store := NewInMemoryStore(time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(1)))
		time.Sleep(5 * time.Millisecond)

		loaded, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("clear removes the snapshot", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(1)))
		require.NoError(t, store.Clear(context.Background(), "sess-1"))
		assert.Equal(t, 0, store.Len())

		loaded, err := store.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("cleanup drops expired entries", func(t *testing.T) {
		store := NewInMemoryStore(time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), "sess-1", testSnapshot(1)))
		require.NoError(t, store.Save(context.Background(), "sess-2", testSnapshot(2)))
		time.Sleep(5 * time.Millisecond)

		store.cleanup()
		assert.Equal(t, 0, store.Len())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewInMemoryStore(time.Hour)
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
	})
}

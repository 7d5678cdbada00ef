package price

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caches(t *testing.T) map[string]Cache {
	t.Helper()
	bc, err := OpenBadgerCache(filepath.Join(t.TempDir(), "prices.badger"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bc.Close() })

	return map[string]Cache{
		"file":   NewFileCache(filepath.Join(t.TempDir(), "AllPrices.cache.json")),
		"badger": bc,
	}
}

func TestCache_RoundTrip(t *testing.T) {
	want := map[string]float32{"a1": 0.25, "b2": 12.5, "c3": 1999.99}

	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.False(t, c.Exists())

			require.NoError(t, c.Save(ctx, want))
			assert.True(t, c.Exists())

			got, err := c.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCache_Delete(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Delete())

			require.NoError(t, c.Save(ctx, map[string]float32{"x": 1}))
			require.NoError(t, c.Delete())
			assert.False(t, c.Exists())
		})
	}
}

func TestFileCache_FlatDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c := NewFileCache(path)
	require.NoError(t, c.Save(context.Background(), map[string]float32{"b": 2, "a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": 2}`, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestBadgerCache_SaveHonorsCancellation(t *testing.T) {
	bc, err := OpenBadgerCache(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	defer bc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, bc.Save(ctx, map[string]float32{"x": 1}), context.Canceled)
	assert.False(t, bc.Exists())
}

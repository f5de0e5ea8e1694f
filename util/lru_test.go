package util_test

import (
	"testing"

	"github.com/stratadb/strata/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	t.Run("simple inserts", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		assert.Equal(t, "(3/100) [3:a 2:a 1:a]", lru.String())
	})
	t.Run("eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](2)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		assert.Equal(t, "(2/2) [3:a 2:a]", lru.String())
	})
	t.Run("get key that does not exist", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		_, ok := lru.Get(1)
		assert.False(t, ok)
	})
	t.Run("reset the cache", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		lru.Reset()
		assert.Equal(t, "(0/100) []", lru.String())
	})
	t.Run("get moves items to front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(3, "a"))
		_, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "(3/100) [1:a 3:a 2:a]", lru.String())
	})
	t.Run("overwrite moves item to the front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		require.NoError(t, lru.Put(1, "a"))
		require.NoError(t, lru.Put(2, "a"))
		require.NoError(t, lru.Put(1, "ab"))
		_, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "(2/100) [1:ab 2:a]", lru.String())
	})
}

func TestLRUSizer(t *testing.T) {
	sizer := util.WithSizer(func(s string) uint64 { return uint64(len(s)) })
	t.Run("weighted eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](10, sizer)
		require.NoError(t, lru.Put(1, "aaaa"))
		require.NoError(t, lru.Put(2, "bbbb"))
		require.NoError(t, lru.Put(3, "cccc"))
		_, ok := lru.Get(1)
		assert.False(t, ok)
		assert.Equal(t, uint64(8), lru.Size())
		assert.Equal(t, 2, lru.Count())
	})
	t.Run("oversized values are rejected", func(t *testing.T) {
		lru := util.NewLRU[int, string](3, sizer)
		require.ErrorIs(t, lru.Put(1, "aaaa"), util.ErrValueTooLarge)
		assert.Equal(t, 0, lru.Count())
	})
	t.Run("overwrite adjusts size", func(t *testing.T) {
		lru := util.NewLRU[int, string](10, sizer)
		require.NoError(t, lru.Put(1, "aaaa"))
		require.NoError(t, lru.Put(1, "aa"))
		assert.Equal(t, uint64(2), lru.Size())
	})
}

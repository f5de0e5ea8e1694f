package bitset_test

import (
	"testing"

	"github.com/stratadb/strata/util/bitset"
	"github.com/stretchr/testify/require"
)

func TestBitset(t *testing.T) {
	t.Run("set bit", func(t *testing.T) {
		set := bitset.New(96)
		set.SetBit(24)
		require.True(t, set.HasBit(24))
		require.False(t, set.HasBit(25))
	})

	t.Run("indexes wrap at bit length", func(t *testing.T) {
		set := bitset.New(96)
		set.SetBit(96 + 24)
		require.True(t, set.HasBit(24))
	})

	t.Run("length rounds up to whole bytes", func(t *testing.T) {
		set := bitset.New(9)
		require.Equal(t, uint64(16), set.Len())
	})

	t.Run("contains", func(t *testing.T) {
		set1 := bitset.New(96)
		set1.SetBit(24)
		set1.SetBit(25)
		set1.SetBit(26)
		set1.SetBit(27)

		set2 := bitset.New(96)
		set2.SetBit(24)
		set2.SetBit(25)

		require.True(t, set1.Contains(set2))
		require.False(t, set2.Contains(set1))
	})

	t.Run("union", func(t *testing.T) {
		set1 := bitset.New(96)
		set1.SetBit(1)
		set2 := bitset.New(96)
		set2.SetBit(90)

		set1.Union(set2)
		require.True(t, set1.HasBit(1))
		require.True(t, set1.HasBit(90))
		require.Equal(t, 2, set1.Count())
	})

	t.Run("count", func(t *testing.T) {
		set := bitset.New(96)
		require.Equal(t, 0, set.Count())
		for i := 0; i < 10; i++ {
			set.SetBit(uint64(i))
		}
		require.Equal(t, 10, set.Count())
	})
}

package rows_test

import (
	"testing"

	"github.com/stratadb/strata/rows"
	"github.com/stretchr/testify/require"
)

func TestEncodeKey(t *testing.T) {
	t.Run("equal key columns produce equal keys", func(t *testing.T) {
		a := rows.Row{rows.NewInt64(1), rows.NewString("x"), rows.NewFloat64(1)}
		b := rows.Row{rows.NewInt64(1), rows.NewString("x"), rows.NewFloat64(2)}
		require.Equal(t,
			rows.EncodeKey(a, []int{0, 1}),
			rows.EncodeKey(b, []int{0, 1}),
		)
	})
	t.Run("differing key columns produce distinct keys", func(t *testing.T) {
		a := rows.Row{rows.NewInt64(1), rows.NewString("x")}
		b := rows.Row{rows.NewInt64(2), rows.NewString("x")}
		require.NotEqual(t,
			rows.EncodeKey(a, []int{0, 1}),
			rows.EncodeKey(b, []int{0, 1}),
		)
	})
	t.Run("string boundaries are unambiguous", func(t *testing.T) {
		a := rows.Row{rows.NewString("ab"), rows.NewString("c")}
		b := rows.Row{rows.NewString("a"), rows.NewString("bc")}
		require.NotEqual(t,
			rows.EncodeKey(a, []int{0, 1}),
			rows.EncodeKey(b, []int{0, 1}),
		)
	})
	t.Run("null is distinct from zero", func(t *testing.T) {
		a := rows.Row{rows.NewNull(rows.TypeInt64)}
		b := rows.Row{rows.NewInt64(0)}
		require.NotEqual(t,
			rows.EncodeKey(a, []int{0}),
			rows.EncodeKey(b, []int{0}),
		)
	})
	t.Run("column order matters", func(t *testing.T) {
		row := rows.Row{rows.NewInt64(1), rows.NewInt64(2)}
		require.NotEqual(t,
			rows.EncodeKey(row, []int{0, 1}),
			rows.EncodeKey(row, []int{1, 0}),
		)
	})
}

func TestKeyDigest(t *testing.T) {
	t.Run("digest is deterministic", func(t *testing.T) {
		key := rows.EncodeKey(rows.Row{rows.NewString("hello")}, []int{0})
		require.Equal(t, key.Digest(), key.Digest())
	})
	t.Run("distinct keys produce distinct digests", func(t *testing.T) {
		k1 := rows.EncodeKey(rows.Row{rows.NewString("hello")}, []int{0})
		k2 := rows.EncodeKey(rows.Row{rows.NewString("world")}, []int{0})
		require.NotEqual(t, k1.Digest(), k2.Digest())
	})
}

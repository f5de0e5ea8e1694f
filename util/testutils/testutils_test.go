package testutils_test

import (
	"testing"

	"github.com/stratadb/strata/util/testutils"
	"github.com/stretchr/testify/require"
)

func TestGetOpenPort(t *testing.T) {
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	require.Positive(t, port)
}

func TestFlatten(t *testing.T) {
	cases := []struct {
		assertion string
		in        [][]int
		expected  []int
	}{
		{"no slices", nil, []int{}},
		{"single", [][]int{{1, 2}}, []int{1, 2}},
		{"multiple", [][]int{{1}, {2, 3}, {}}, []int{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, testutils.Flatten(c.in...))
		})
	}
}

func TestByteBuilders(t *testing.T) {
	cases := []struct {
		assertion string
		in        []byte
		expected  []byte
	}{
		{"u8", testutils.U8b(7), []byte{7}},
		{"u32", testutils.U32b(1), []byte{1, 0, 0, 0}},
		{"u64", testutils.U64b(1), []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{"empty string", testutils.Strb(""), []byte{0, 0, 0, 0}},
		{"string", testutils.Strb("max"), []byte{3, 0, 0, 0, 'm', 'a', 'x'}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, c.in)
		})
	}
}

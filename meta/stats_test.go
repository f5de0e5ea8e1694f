package meta_test

import (
	"testing"

	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/rows"
	"github.com/stretchr/testify/require"
)

func TestComputeColumnStats(t *testing.T) {
	schema := rows.NewSchema(
		rows.Column{Name: "id", Type: rows.TypeInt64},
		rows.Column{Name: "score", Type: rows.TypeFloat64, Nullable: true},
	)
	batch := rows.NewBatch(schema)
	batch.Append(
		rows.Row{rows.NewInt64(5), rows.NewFloat64(2.5)},
		rows.Row{rows.NewInt64(-3), rows.NewNull(rows.TypeFloat64)},
		rows.Row{rows.NewInt64(10), rows.NewFloat64(1.5)},
	)
	stats := meta.ComputeColumnStats(batch)

	t.Run("min and max track non-null values", func(t *testing.T) {
		require.Equal(t, rows.NewInt64(-3), stats["id"].Min)
		require.Equal(t, rows.NewInt64(10), stats["id"].Max)
		require.Equal(t, rows.NewFloat64(1.5), stats["score"].Min)
		require.Equal(t, rows.NewFloat64(2.5), stats["score"].Max)
	})
	t.Run("nulls are counted", func(t *testing.T) {
		require.Equal(t, uint64(0), stats["id"].NullCount)
		require.Equal(t, uint64(1), stats["score"].NullCount)
	})
	t.Run("all-null column has null bounds", func(t *testing.T) {
		empty := rows.NewBatch(schema)
		empty.Append(rows.Row{rows.NewInt64(1), rows.NewNull(rows.TypeFloat64)})
		s := meta.ComputeColumnStats(empty)
		require.True(t, s["score"].Min.Null)
		require.True(t, s["score"].Max.Null)
		require.Equal(t, uint64(1), s["score"].NullCount)
	})
}

func TestColumnStatsContains(t *testing.T) {
	stats := meta.ColumnStats{
		Min:       rows.NewInt64(10),
		Max:       rows.NewInt64(20),
		NullCount: 0,
	}
	cases := []struct {
		assertion string
		value     rows.Value
		expected  bool
	}{
		{"below range", rows.NewInt64(5), false},
		{"at min", rows.NewInt64(10), true},
		{"in range", rows.NewInt64(15), true},
		{"at max", rows.NewInt64(20), true},
		{"above range", rows.NewInt64(25), false},
		{"null with no nulls present", rows.NewNull(rows.TypeInt64), false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.expected, stats.Contains(c.value))
		})
	}
	t.Run("null with nulls present", func(t *testing.T) {
		withNulls := meta.ColumnStats{
			Min:       rows.NewInt64(10),
			Max:       rows.NewInt64(20),
			NullCount: 3,
		}
		require.True(t, withNulls.Contains(rows.NewNull(rows.TypeInt64)))
	})
	t.Run("all-null column contains nothing but null", func(t *testing.T) {
		allNull := meta.ColumnStats{
			Min:       rows.NewNull(rows.TypeInt64),
			Max:       rows.NewNull(rows.TypeInt64),
			NullCount: 5,
		}
		require.False(t, allNull.Contains(rows.NewInt64(10)))
		require.True(t, allNull.Contains(rows.NewNull(rows.TypeInt64)))
	})
}

func TestMergeColumnStats(t *testing.T) {
	a := map[string]meta.ColumnStats{
		"id": {Min: rows.NewInt64(5), Max: rows.NewInt64(10), NullCount: 1},
	}
	b := map[string]meta.ColumnStats{
		"id":   {Min: rows.NewInt64(-2), Max: rows.NewInt64(7), NullCount: 2},
		"name": {Min: rows.NewString("a"), Max: rows.NewString("z")},
	}
	merged := meta.MergeColumnStats(a, b)

	require.Equal(t, rows.NewInt64(-2), merged["id"].Min)
	require.Equal(t, rows.NewInt64(10), merged["id"].Max)
	require.Equal(t, uint64(3), merged["id"].NullCount)
	require.Equal(t, rows.NewString("a"), merged["name"].Min)

	t.Run("null bounds defer to the other side", func(t *testing.T) {
		allNull := map[string]meta.ColumnStats{
			"id": {Min: rows.NewNull(rows.TypeInt64), Max: rows.NewNull(rows.TypeInt64), NullCount: 4},
		}
		merged := meta.MergeColumnStats(allNull, a)
		require.Equal(t, rows.NewInt64(5), merged["id"].Min)
		require.Equal(t, rows.NewInt64(10), merged["id"].Max)
		require.Equal(t, uint64(5), merged["id"].NullCount)
	})
	t.Run("inputs are not mutated", func(t *testing.T) {
		require.Equal(t, rows.NewInt64(5), a["id"].Min)
	})
}

func TestSummarizeBlocks(t *testing.T) {
	blocks := []meta.BlockMeta{
		{
			RowCount: 100,
			ByteSize: 1000,
			ColumnStats: map[string]meta.ColumnStats{
				"id": {Min: rows.NewInt64(0), Max: rows.NewInt64(99)},
			},
		},
		{
			RowCount:   50,
			ByteSize:   500,
			FilterSize: 64,
			ColumnStats: map[string]meta.ColumnStats{
				"id": {Min: rows.NewInt64(100), Max: rows.NewInt64(149)},
			},
		},
	}
	stats := meta.SummarizeBlocks(blocks)
	require.Equal(t, uint64(150), stats.RowCount)
	require.Equal(t, uint64(2), stats.BlockCount)
	require.Equal(t, uint64(1500), stats.ByteSize)
	require.Equal(t, uint64(64), stats.FilterSize)
	require.Equal(t, rows.NewInt64(0), stats.ColumnStats["id"].Min)
	require.Equal(t, rows.NewInt64(149), stats.ColumnStats["id"].Max)
}

func TestMergeStatistics(t *testing.T) {
	a := meta.Statistics{RowCount: 10, BlockCount: 1, ByteSize: 100}
	b := meta.Statistics{RowCount: 20, BlockCount: 2, ByteSize: 200, FilterSize: 32}
	merged := meta.MergeStatistics(a, b)
	require.Equal(t, uint64(30), merged.RowCount)
	require.Equal(t, uint64(3), merged.BlockCount)
	require.Equal(t, uint64(300), merged.ByteSize)
	require.Equal(t, uint64(32), merged.FilterSize)
}

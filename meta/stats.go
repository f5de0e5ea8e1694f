package meta

import (
	"github.com/stratadb/strata/rows"
)

/*
Column and aggregate statistics. Min and max track non-null values only; a
column whose values are all null carries null min and max. Nulls are counted
separately. Aggregates over blocks and segments are pure folds of the
per-block stats, so rewriting any subset of blocks only requires
resummarizing, never rescanning.
*/

////////////////////////////////////////////////////////////////////////////////

// ColumnStats holds the min, max, and null count of one column.
type ColumnStats struct {
	Min       rows.Value `json:"min"`
	Max       rows.Value `json:"max"`
	NullCount uint64     `json:"nullCount"`
}

// Contains returns true if v falls within the column's min/max range. Null
// values are contained iff the column has nulls.
func (c ColumnStats) Contains(v rows.Value) bool {
	if v.Null {
		return c.NullCount > 0
	}
	if c.Min.Null || c.Max.Null {
		return false
	}
	return c.Min.Compare(v) <= 0 && c.Max.Compare(v) >= 0
}

// Statistics aggregates stats over a set of blocks.
type Statistics struct {
	RowCount    uint64                 `json:"rowCount"`
	BlockCount  uint64                 `json:"blockCount"`
	ByteSize    uint64                 `json:"byteSize"`
	FilterSize  uint64                 `json:"filterSize,omitempty"`
	ColumnStats map[string]ColumnStats `json:"columnStats,omitempty"`
}

// ComputeColumnStats scans a batch and returns per-column stats.
func ComputeColumnStats(batch *rows.Batch) map[string]ColumnStats {
	stats := make(map[string]ColumnStats, len(batch.Schema.Columns))
	for i, col := range batch.Schema.Columns {
		cs := ColumnStats{
			Min: rows.NewNull(col.Type),
			Max: rows.NewNull(col.Type),
		}
		for _, row := range batch.Rows {
			v := row[i]
			if v.Null {
				cs.NullCount++
				continue
			}
			if cs.Min.Null || v.Compare(cs.Min) < 0 {
				cs.Min = v
			}
			if cs.Max.Null || v.Compare(cs.Max) > 0 {
				cs.Max = v
			}
		}
		stats[col.Name] = cs
	}
	return stats
}

// MergeColumnStats folds b into a, returning the combined stats.
func MergeColumnStats(a, b map[string]ColumnStats) map[string]ColumnStats {
	merged := make(map[string]ColumnStats, len(a))
	for name, stats := range a {
		merged[name] = stats
	}
	for name, bs := range b {
		as, ok := merged[name]
		if !ok {
			merged[name] = bs
			continue
		}
		merged[name] = ColumnStats{
			Min:       minValue(as.Min, bs.Min),
			Max:       maxValue(as.Max, bs.Max),
			NullCount: as.NullCount + bs.NullCount,
		}
	}
	return merged
}

func minValue(a, b rows.Value) rows.Value {
	if a.Null {
		return b
	}
	if b.Null {
		return a
	}
	if b.Compare(a) < 0 {
		return b
	}
	return a
}

func maxValue(a, b rows.Value) rows.Value {
	if a.Null {
		return b
	}
	if b.Null {
		return a
	}
	if b.Compare(a) > 0 {
		return b
	}
	return a
}

// SummarizeBlocks folds block descriptors into aggregate statistics.
func SummarizeBlocks(blocks []BlockMeta) Statistics {
	var stats Statistics
	for _, block := range blocks {
		stats.RowCount += block.RowCount
		stats.BlockCount++
		stats.ByteSize += block.ByteSize
		stats.FilterSize += block.FilterSize
		stats.ColumnStats = MergeColumnStats(stats.ColumnStats, block.ColumnStats)
	}
	return stats
}

// MergeStatistics folds b into a, returning the combined statistics.
func MergeStatistics(a, b Statistics) Statistics {
	return Statistics{
		RowCount:    a.RowCount + b.RowCount,
		BlockCount:  a.BlockCount + b.BlockCount,
		ByteSize:    a.ByteSize + b.ByteSize,
		FilterSize:  a.FilterSize + b.FilterSize,
		ColumnStats: MergeColumnStats(a.ColumnStats, b.ColumnStats),
	}
}

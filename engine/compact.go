package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/stratadb/strata/commit"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util"
	"github.com/stratadb/strata/util/log"
)

// Compact merges undersized blocks into fuller ones and commits the result as
// a new version. Key names the on-conflict columns whose filters are rebuilt
// on the merged blocks; it may be nil. Compaction commits under the drop
// overlap policy: losing the race to a concurrent mutation forfeits the work
// instead of failing it.
func (e *Engine) Compact(
	ctx context.Context, table string, key []string,
) (*commit.Result, error) {
	started := time.Now()
	ctx = log.AddTags(ctx, "table", table)
	base, entry, blocks, err := e.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	keyIdxs, err := base.Schema.Indexes(key...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict key: %w", err)
	}
	threshold := uint64(e.config.compactionThreshold)
	if threshold < 1 {
		threshold = uint64(e.config.maxRowsPerBlock / 2)
	}
	var small []meta.BlockMeta
	for _, block := range blocks {
		if block.RowCount < threshold {
			small = append(small, block)
		}
	}
	if len(small) < 2 {
		log.Debugf(ctx, "nothing to compact in %s", table)
		return &commit.Result{Snapshot: base, Entry: entry}, nil
	}

	delta := mutation.NewDelta()
	merged := rows.NewBatch(base.Schema)
	for _, block := range small {
		batch, err := e.reader.Block(ctx, block)
		if err != nil {
			return nil, err
		}
		merged.Append(batch.Rows...)
		if err := delta.Fold(mutation.RemoveOp(block, 0)); err != nil {
			return nil, err
		}
	}
	for off := 0; off < merged.Len(); off += e.config.maxRowsPerBlock {
		end := util.Min(off+e.config.maxRowsPerBlock, merged.Len())
		chunk := &rows.Batch{Schema: base.Schema, Rows: merged.Rows[off:end]}
		block, err := e.writer.WriteBlock(ctx, table, chunk, keyIdxs)
		if err != nil {
			return nil, fmt.Errorf("failed to write merged block: %w", err)
		}
		if err := delta.Fold(mutation.AppendOp(block)); err != nil {
			return nil, err
		}
	}

	result, err := e.compactionSink.Commit(ctx, table, base, entry, mutation.NewLog(base.ID, delta))
	e.metrics.commitSeconds.Observe(time.Since(started).Seconds())
	if err != nil {
		e.metrics.commits.WithLabelValues(table, "error").Inc()
		return nil, err
	}
	if result.Dropped {
		e.metrics.commits.WithLabelValues(table, "dropped").Inc()
		return result, nil
	}
	e.metrics.commits.WithLabelValues(table, "committed").Inc()
	e.metrics.compactions.Inc()
	e.metrics.blocksWritten.WithLabelValues(table, "append").Add(float64(delta.BlocksAppended()))
	log.Infof(ctx, "compacted %s: %d blocks into %d (%d rows)",
		table, len(small), delta.BlocksAppended(), merged.Len())
	return result, nil
}

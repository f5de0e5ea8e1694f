package pipeline

import (
	"context"
	"fmt"

	"github.com/stratadb/strata/matcher"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
)

/*
Partition aggregators. Each aggregator owns a disjoint subset of the
snapshot's blocks and is the only stage that touches them, so its block
mutations never race. Hash tables over the owned blocks are built lazily, the
first time a candidate names the block. When the candidate stream closes the
aggregator settles its accumulated mutations: fully deleted blocks become
removals, partially touched blocks are spliced and rewritten.
*/

////////////////////////////////////////////////////////////////////////////////

// partitionResult carries one aggregator's finalized operations and the
// ordinals of the source rows it matched.
type partitionResult struct {
	ops    []mutation.Op
	claims map[uint64]rows.Key
	err    error
}

type aggregator struct {
	p      *Pipeline
	blocks []meta.BlockMeta
	tables map[int]*matcher.Table
	acc    *mutation.Accumulator
	claims map[uint64]rows.Key
}

func newAggregator(p *Pipeline, blocks []meta.BlockMeta) *aggregator {
	return &aggregator{
		p:      p,
		blocks: blocks,
		tables: make(map[int]*matcher.Table),
		acc:    mutation.NewAccumulator(),
		claims: make(map[uint64]rows.Key),
	}
}

func (a *aggregator) run(ctx context.Context, candidates <-chan candidate) partitionResult {
	for {
		select {
		case <-ctx.Done():
			return partitionResult{err: ctx.Err()}
		case c, ok := <-candidates:
			if !ok {
				return a.finalize(ctx)
			}
			if err := a.process(ctx, c); err != nil {
				return partitionResult{err: err}
			}
		}
	}
}

// process matches one candidate against the blocks it was routed to. At most
// one block may hold the key; candidates matching none are dropped, since
// unmatched upserts insert through the remainder and unmatched deletes are
// no-ops.
func (a *aggregator) process(ctx context.Context, c candidate) error {
	matched := -1
	var position uint32
	for _, idx := range c.blocks {
		table, err := a.table(ctx, idx)
		if err != nil {
			return err
		}
		pos, ok, err := table.Probe(c.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if matched >= 0 {
			return matcher.NewMultipleMatchError(c.key)
		}
		matched, position = idx, pos
	}
	if matched < 0 {
		return nil
	}
	block := a.blocks[matched].Location.Key
	a.claims[c.ordinal] = c.key
	switch c.action {
	case DeleteMatched:
		return a.acc.Apply(mutation.DeleteIntent(block, position))
	case Upsert:
		return a.acc.Apply(mutation.ReplaceIntent(block, position, c.key, c.row))
	default:
		return fmt.Errorf("unexpected action in candidate stream: %s", c.action)
	}
}

func (a *aggregator) table(ctx context.Context, idx int) (*matcher.Table, error) {
	if t, ok := a.tables[idx]; ok {
		return t, nil
	}
	batch, err := a.p.reader.Block(ctx, a.blocks[idx])
	if err != nil {
		return nil, fmt.Errorf("failed to read target block: %w", err)
	}
	t := matcher.NewTable(batch, a.p.keyIdxs)
	a.tables[idx] = t
	return t, nil
}

// finalize turns the accumulated block mutations into operations, visiting
// blocks in table order so results are deterministic.
func (a *aggregator) finalize(ctx context.Context) partitionResult {
	var ops []mutation.Op
	for _, block := range a.blocks {
		bm, ok := a.acc.Block(block.Location.Key)
		if !ok {
			continue
		}
		if bm.AllDeleted(block.RowCount) {
			ops = append(ops, mutation.RemoveOp(block, bm.RowsDeleted()))
			continue
		}
		batch, err := a.p.reader.Block(ctx, block)
		if err != nil {
			return partitionResult{err: fmt.Errorf("failed to read target block: %w", err)}
		}
		rewritten, err := a.p.writer.WriteBlock(ctx, a.p.table, bm.Splice(batch), a.p.keyIdxs)
		if err != nil {
			return partitionResult{err: fmt.Errorf("failed to rewrite block: %w", err)}
		}
		ops = append(ops, mutation.ReplaceOp(block, rewritten, bm.RowsDeleted(), bm.RowsReplaced()))
	}
	return partitionResult{ops: ops, claims: a.claims}
}

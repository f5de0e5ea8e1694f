package pipeline

import (
	"context"
	"fmt"

	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
)

/*
Append stage. A single consumer packs incoming rows into blocks of at most
maxRows rows, preserving arrival order. It receives insert-only rows while the
source is still streaming and the unmatched upsert remainder after the
partitions have settled, and returns its append operations when the insert
channel closes.
*/

////////////////////////////////////////////////////////////////////////////////

type appendOutcome struct {
	ops []mutation.Op
	err error
}

func (p *Pipeline) appendRows(ctx context.Context, inserts <-chan rows.Row) ([]mutation.Op, error) {
	var ops []mutation.Op
	batch := rows.NewBatch(p.schema)
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		block, err := p.writer.WriteBlock(ctx, p.table, batch, p.keyIdxs)
		if err != nil {
			return fmt.Errorf("failed to append block: %w", err)
		}
		ops = append(ops, mutation.AppendOp(block))
		batch = rows.NewBatch(p.schema)
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case row, ok := <-inserts:
			if !ok {
				if err := flush(); err != nil {
					return nil, err
				}
				return ops, nil
			}
			batch.Append(row)
			if batch.Len() >= p.maxRows {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
	}
}

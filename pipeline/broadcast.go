package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util/log"
)

/*
Broadcast stage. A single goroutine drains the source, numbers the rows of
matching batches with global ordinals, and fans each row out to the partitions
whose blocks may contain its key. Key encoding and digesting happen here, once
per row. Insert-only rows skip matching entirely and flow straight to the
append stage.
*/

////////////////////////////////////////////////////////////////////////////////

// candidate is one source row routed to a partition, with the partition-local
// indexes of the blocks it may match.
type candidate struct {
	ordinal uint64
	action  Action
	key     rows.Key
	row     rows.Row
	blocks  []int
}

// sourceRow pairs an upsert row with its ordinal for the unmatched remainder.
type sourceRow struct {
	ordinal uint64
	row     rows.Row
}

func (r *run) broadcast(ctx context.Context, source Source) error {
	defer func() {
		for _, ch := range r.candidates {
			close(ch)
		}
	}()
	var ordinal uint64
	var routed uint64
	for {
		batch, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Debugf(ctx, "broadcast done: %d rows numbered, %d candidates routed",
				ordinal, routed)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source batch: %w", err)
		}
		switch batch.Action {
		case InsertOnly:
			for _, row := range batch.Rows.Rows {
				select {
				case r.inserts <- row:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case Upsert, DeleteMatched:
			if len(r.p.keyIdxs) == 0 {
				return fmt.Errorf("%s source requires a conflict key", batch.Action)
			}
			for _, row := range batch.Rows.Rows {
				ord := ordinal
				ordinal++
				if batch.Action == Upsert {
					r.upserts = append(r.upserts, sourceRow{ordinal: ord, row: row})
				}
				key := rows.EncodeKey(row, r.p.keyIdxs)
				digest := key.Digest()
				for partition := 0; partition < r.p.partitions; partition++ {
					hits, err := r.p.hits(ctx, partition, row, digest)
					if err != nil {
						return err
					}
					if len(hits) == 0 {
						continue
					}
					routed++
					c := candidate{
						ordinal: ord,
						action:  batch.Action,
						key:     key,
						row:     row,
						blocks:  hits,
					}
					select {
					case r.candidates[partition] <- c:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		default:
			return fmt.Errorf("unknown source action: %s", batch.Action)
		}
	}
}

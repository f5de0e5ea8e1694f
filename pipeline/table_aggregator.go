package pipeline

import (
	"context"

	"github.com/stratadb/strata/matcher"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util/log"
)

/*
Fan-in barrier. The collector waits for every partition, merges their claims
and operations, and only then releases the unmatched upsert remainder to the
append stage. A source row claimed by two partitions matched target rows in
two different blocks, which is a multiple-match failure just like two matches
within one block.
*/

////////////////////////////////////////////////////////////////////////////////

func (r *run) collect(ctx context.Context) (*mutation.Delta, error) {
	delta := mutation.NewDelta()
	claims := make(map[uint64]rows.Key)
	var failure error
	for i := 0; i < r.p.partitions; i++ {
		var result partitionResult
		select {
		case result = <-r.results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if result.err != nil {
			if failure == nil {
				failure = result.err
			}
			continue
		}
		if failure != nil {
			continue
		}
		for ordinal, key := range result.claims {
			if _, ok := claims[ordinal]; ok {
				failure = matcher.NewMultipleMatchError(key)
				break
			}
			claims[ordinal] = key
		}
		if failure != nil {
			continue
		}
		for _, op := range result.ops {
			if err := delta.Fold(op); err != nil {
				failure = err
				break
			}
		}
	}
	if failure != nil {
		return nil, failure
	}
	for _, u := range r.upserts {
		if _, ok := claims[u.ordinal]; ok {
			continue
		}
		select {
		case r.inserts <- u.row:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	close(r.inserts)
	outcome := <-r.appendDone
	if outcome.err != nil {
		return nil, outcome.err
	}
	for _, op := range outcome.ops {
		if err := delta.Fold(op); err != nil {
			return nil, err
		}
	}
	log.Debugf(ctx, "mutation delta: %d inserted, %d updated, %d deleted",
		delta.RowsInserted(), delta.RowsUpdated(), delta.RowsDeleted())
	return delta, nil
}

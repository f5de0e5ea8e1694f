package matcher

import (
	"github.com/stratadb/strata/rows"
)

/*
On-conflict matching. A Table indexes one target block's rows by their
conflict key and answers, for each probed source key, the position of the
matching target row. Merge semantics admit at most one target match per
source row and at most one source claimant per target row; violations
surface as MultipleMatchError.

Matching is deterministic: the index is built in row order and a probe
depends only on key equality, never on wall clock or scheduling order.
*/

////////////////////////////////////////////////////////////////////////////////

// Table indexes the rows of one target block by conflict key.
type Table struct {
	positions  map[rows.Key]uint32
	duplicates map[rows.Key]struct{}
}

// NewTable indexes batch by the key columns at keyIdxs. Duplicate keys are
// tolerated at build time and rejected when probed; a duplicate nothing
// probes never affects a mutation.
func NewTable(batch *rows.Batch, keyIdxs []int) *Table {
	t := &Table{positions: make(map[rows.Key]uint32, batch.Len())}
	for i, row := range batch.Rows {
		key := rows.EncodeKey(row, keyIdxs)
		if _, ok := t.positions[key]; ok {
			if t.duplicates == nil {
				t.duplicates = map[rows.Key]struct{}{}
			}
			t.duplicates[key] = struct{}{}
			continue
		}
		t.positions[key] = uint32(i)
	}
	return t
}

// Probe returns the position of the target row matching key, if any. Probing
// a key held by more than one target row fails with MultipleMatchError.
func (t *Table) Probe(key rows.Key) (uint32, bool, error) {
	if _, ok := t.duplicates[key]; ok {
		return 0, false, NewMultipleMatchError(key)
	}
	position, ok := t.positions[key]
	return position, ok, nil
}

// Len returns the number of distinct keys in the table.
func (t *Table) Len() int {
	return len(t.positions)
}

package mutation

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/stratadb/strata/matcher"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util"
)

// Replacement is a pending row replacement, keeping the conflict key that
// claimed the row.
type Replacement struct {
	Key rows.Key
	Row rows.Row
}

// BlockMutation accumulates the row-level outcome for one block: a deletion
// bitmap and a set of positional replacements. Deletions are idempotent and
// union across contributors. Each position may be replaced at most once;
// a second claim on a replaced or deleted row is a multiple match.
type BlockMutation struct {
	deleted  *roaring.Bitmap
	replaced map[uint32]Replacement
}

// NewBlockMutation returns an empty block mutation.
func NewBlockMutation() *BlockMutation {
	return &BlockMutation{
		deleted:  roaring.New(),
		replaced: make(map[uint32]Replacement),
	}
}

// Delete marks the row at position deleted. Deleting a deleted row is a
// no-op; deleting a replaced row means two source rows claimed it.
func (m *BlockMutation) Delete(position uint32) error {
	if r, ok := m.replaced[position]; ok {
		return matcher.NewMultipleMatchError(r.Key)
	}
	m.deleted.Add(position)
	return nil
}

// Replace records row as the replacement for the row at position.
func (m *BlockMutation) Replace(key rows.Key, position uint32, row rows.Row) error {
	if _, ok := m.replaced[position]; ok {
		return matcher.NewMultipleMatchError(key)
	}
	if m.deleted.Contains(position) {
		return matcher.NewMultipleMatchError(key)
	}
	m.replaced[position] = Replacement{Key: key, Row: row}
	return nil
}

// Merge folds o into the receiver. Deletions union; replacements must land
// on distinct rows. On error the receiver may hold a partial merge; callers
// abort the mutation.
func (m *BlockMutation) Merge(o *BlockMutation) error {
	for position, r := range o.replaced {
		if err := m.Replace(r.Key, position, r.Row); err != nil {
			return err
		}
	}
	for position, r := range m.replaced {
		if o.deleted.Contains(position) {
			return matcher.NewMultipleMatchError(r.Key)
		}
	}
	m.deleted.Or(o.deleted)
	return nil
}

// Splice applies the mutation to the block's original rows, returning the
// surviving rows with replacements spliced in at their positions.
func (m *BlockMutation) Splice(batch *rows.Batch) *rows.Batch {
	spliced := rows.NewBatch(batch.Schema)
	for i, row := range batch.Rows {
		position := uint32(i)
		if m.deleted.Contains(position) {
			continue
		}
		if r, ok := m.replaced[position]; ok {
			spliced.Append(r.Row)
			continue
		}
		spliced.Append(row)
	}
	return spliced
}

// AllDeleted returns true if the mutation deletes every row of a block with
// rowCount rows.
func (m *BlockMutation) AllDeleted(rowCount uint64) bool {
	return m.deleted.GetCardinality() == rowCount
}

// RowsDeleted returns the number of rows the mutation deletes.
func (m *BlockMutation) RowsDeleted() uint64 {
	return m.deleted.GetCardinality()
}

// RowsReplaced returns the number of rows the mutation replaces.
func (m *BlockMutation) RowsReplaced() uint64 {
	return uint64(len(m.replaced))
}

////////////////////////////////////////////////////////////////////////////////

// Accumulator folds a stream of row-level intents into per-block mutations
// and a set of inserted rows.
type Accumulator struct {
	blocks  map[string]*BlockMutation
	inserts []rows.Row
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{blocks: make(map[string]*BlockMutation)}
}

// Apply folds one intent into the accumulator.
func (a *Accumulator) Apply(intent Intent) error {
	switch intent.Kind {
	case IntentInsert:
		a.inserts = append(a.inserts, intent.Row)
	case IntentDelete:
		if err := a.block(intent.Block).Delete(intent.Position); err != nil {
			return err
		}
	case IntentReplace:
		if err := a.block(intent.Block).Replace(intent.Key, intent.Position, intent.Row); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown intent kind: %s", intent.Kind)
	}
	return nil
}

// Merge folds another accumulator into the receiver, merging mutations that
// touched the same blocks.
func (a *Accumulator) Merge(o *Accumulator) error {
	for key, mutation := range o.blocks {
		existing, ok := a.blocks[key]
		if !ok {
			a.blocks[key] = mutation
			continue
		}
		if err := existing.Merge(mutation); err != nil {
			return fmt.Errorf("failed to merge mutations for block %s: %w", key, err)
		}
	}
	a.inserts = append(a.inserts, o.inserts...)
	return nil
}

// Block returns the accumulated mutation for the block with the given object
// key, if any.
func (a *Accumulator) Block(key string) (*BlockMutation, bool) {
	mutation, ok := a.blocks[key]
	return mutation, ok
}

// Keys returns the object keys of all touched blocks, sorted.
func (a *Accumulator) Keys() []string {
	return util.Okeys(a.blocks)
}

// Inserts returns the accumulated insert rows in arrival order.
func (a *Accumulator) Inserts() []rows.Row {
	return a.inserts
}

// Empty returns true if the accumulator holds no mutations.
func (a *Accumulator) Empty() bool {
	return len(a.blocks) == 0 && len(a.inserts) == 0
}

func (a *Accumulator) block(key string) *BlockMutation {
	mutation, ok := a.blocks[key]
	if !ok {
		mutation = NewBlockMutation()
		a.blocks[key] = mutation
	}
	return mutation
}

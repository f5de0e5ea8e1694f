package mutation

import (
	"fmt"

	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/util"
)

// OpKind enumerates the block-level operations.
type OpKind uint8

const (
	OpAppend OpKind = iota + 1
	OpReplace
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpAppend:
		return "append"
	case OpReplace:
		return "replace"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("unknown (%d)", k)
	}
}

// Op is one finalized block-level operation.
type Op struct {
	Kind        OpKind
	Old         meta.BlockMeta
	New         meta.BlockMeta
	RowsDeleted uint64
	RowsUpdated uint64
}

// AppendOp returns an operation appending a newly written block.
func AppendOp(block meta.BlockMeta) Op {
	return Op{Kind: OpAppend, New: block}
}

// ReplaceOp returns an operation replacing old with the rewritten block.
func ReplaceOp(old, rewritten meta.BlockMeta, rowsDeleted, rowsUpdated uint64) Op {
	return Op{Kind: OpReplace, Old: old, New: rewritten, RowsDeleted: rowsDeleted, RowsUpdated: rowsUpdated}
}

// RemoveOp returns an operation removing a fully deleted block.
func RemoveOp(old meta.BlockMeta, rowsDeleted uint64) Op {
	return Op{Kind: OpRemove, Old: old, RowsDeleted: rowsDeleted}
}

////////////////////////////////////////////////////////////////////////////////

// Delta is the table-scoped outcome of one mutation: the operation for every
// touched block, plus the newly appended blocks.
type Delta struct {
	touched map[string]Op
	appends []meta.BlockMeta

	rowsInserted uint64
	rowsUpdated  uint64
	rowsDeleted  uint64
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{touched: make(map[string]Op)}
}

// Fold folds one operation into the delta. Each block may be touched by at
// most one operation; partitions own disjoint block sets, so a second
// operation on the same block is an internal consistency failure.
func (d *Delta) Fold(op Op) error {
	switch op.Kind {
	case OpAppend:
		d.appends = append(d.appends, op.New)
		d.rowsInserted += op.New.RowCount
	case OpReplace, OpRemove:
		key := op.Old.Location.Key
		if _, ok := d.touched[key]; ok {
			return NewConflictingOperationError(key)
		}
		d.touched[key] = op
		d.rowsDeleted += op.RowsDeleted
		d.rowsUpdated += op.RowsUpdated
	default:
		return fmt.Errorf("unknown operation kind: %s", op.Kind)
	}
	return nil
}

// Empty returns true if the delta contains no operations.
func (d *Delta) Empty() bool {
	return len(d.touched) == 0 && len(d.appends) == 0
}

// TouchedKeys returns the object keys of all touched blocks, sorted.
func (d *Delta) TouchedKeys() []string {
	return util.Okeys(d.touched)
}

// Appends returns the appended blocks in fold order.
func (d *Delta) Appends() []meta.BlockMeta {
	return d.appends
}

// RowsInserted returns the number of rows the delta inserts.
func (d *Delta) RowsInserted() uint64 { return d.rowsInserted }

// RowsUpdated returns the number of rows the delta updates in place.
func (d *Delta) RowsUpdated() uint64 { return d.rowsUpdated }

// RowsDeleted returns the number of rows the delta deletes.
func (d *Delta) RowsDeleted() uint64 { return d.rowsDeleted }

// BlocksAppended returns the number of appended blocks.
func (d *Delta) BlocksAppended() uint64 {
	return uint64(len(d.appends))
}

// BlocksReplaced returns the number of replaced blocks.
func (d *Delta) BlocksReplaced() uint64 {
	return d.countTouched(OpReplace)
}

// BlocksRemoved returns the number of removed blocks.
func (d *Delta) BlocksRemoved() uint64 {
	return d.countTouched(OpRemove)
}

func (d *Delta) countTouched(kind OpKind) uint64 {
	var count uint64
	for _, op := range d.touched {
		if op.Kind == kind {
			count++
		}
	}
	return count
}

////////////////////////////////////////////////////////////////////////////////

// SegmentUpdate is one segment of the candidate table version: either the
// location of a kept segment, or a manifest that must be written.
type SegmentUpdate struct {
	Location meta.Location
	Manifest *meta.Segment
}

// Apply combines a base snapshot's resolved segments with the delta,
// producing the candidate segment list. Untouched segments keep their
// locations; segments with touched blocks are rewritten; segments left with
// no blocks drop; appended blocks pack into new trailing segments of at most
// blocksPerSegment blocks. Fails with ErrOverlap if a touched block is
// absent from the base, meaning a concurrent commit rewrote it.
func (d *Delta) Apply(
	segments []*meta.Segment, locations []meta.Location, blocksPerSegment int,
) ([]SegmentUpdate, error) {
	if len(segments) != len(locations) {
		return nil, fmt.Errorf("got %d segments for %d locations", len(segments), len(locations))
	}
	if blocksPerSegment < 1 {
		blocksPerSegment = 1
	}
	consumed := 0
	updates := make([]SegmentUpdate, 0, len(segments))
	for i, segment := range segments {
		if !d.touches(segment) {
			updates = append(updates, SegmentUpdate{Location: locations[i]})
			continue
		}
		blocks := make([]meta.BlockMeta, 0, len(segment.Blocks))
		for _, block := range segment.Blocks {
			op, ok := d.touched[block.Location.Key]
			if !ok {
				blocks = append(blocks, block)
				continue
			}
			consumed++
			switch op.Kind {
			case OpReplace:
				blocks = append(blocks, op.New)
			case OpRemove:
			default:
				return nil, fmt.Errorf("unexpected %s operation for block %s", op.Kind, block.Location.Key)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		updates = append(updates, SegmentUpdate{Manifest: meta.NewSegment(blocks)})
	}
	if consumed != len(d.touched) {
		return nil, fmt.Errorf("%w: %d of %d touched blocks absent from the base snapshot",
			ErrOverlap, len(d.touched)-consumed, len(d.touched))
	}
	for start := 0; start < len(d.appends); start += blocksPerSegment {
		end := util.Min(start+blocksPerSegment, len(d.appends))
		updates = append(updates, SegmentUpdate{Manifest: meta.NewSegment(d.appends[start:end])})
	}
	return updates, nil
}

func (d *Delta) touches(segment *meta.Segment) bool {
	for _, block := range segment.Blocks {
		if _, ok := d.touched[block.Location.Key]; ok {
			return true
		}
	}
	return false
}

package mutation_test

import (
	"testing"

	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func block(key string, rowCount uint64) meta.BlockMeta {
	return meta.BlockMeta{Location: meta.NewLocation(key), RowCount: rowCount}
}

func TestDeltaFold(t *testing.T) {
	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.AppendOp(block("blocks/new1", 10))))
	require.NoError(t, delta.Fold(mutation.AppendOp(block("blocks/new2", 5))))
	require.NoError(t, delta.Fold(mutation.ReplaceOp(block("blocks/a", 100), block("blocks/a2", 97), 3, 5)))
	require.NoError(t, delta.Fold(mutation.RemoveOp(block("blocks/b", 7), 7)))

	assert.Equal(t, uint64(15), delta.RowsInserted())
	assert.Equal(t, uint64(5), delta.RowsUpdated())
	assert.Equal(t, uint64(10), delta.RowsDeleted())
	assert.Equal(t, uint64(2), delta.BlocksAppended())
	assert.Equal(t, uint64(1), delta.BlocksReplaced())
	assert.Equal(t, uint64(1), delta.BlocksRemoved())
	assert.Equal(t, []string{"blocks/a", "blocks/b"}, delta.TouchedKeys())
	assert.False(t, delta.Empty())
}

func TestDeltaEmpty(t *testing.T) {
	require.True(t, mutation.NewDelta().Empty())
}

func TestDeltaFoldConflict(t *testing.T) {
	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.RemoveOp(block("blocks/a", 5), 5)))
	err := delta.Fold(mutation.ReplaceOp(block("blocks/a", 5), block("blocks/a2", 3), 2, 0))
	require.ErrorIs(t, err, mutation.ConflictingOperationError{})
}

func TestDeltaApply(t *testing.T) {
	b1, b2, b3 := block("blocks/b1", 10), block("blocks/b2", 20), block("blocks/b3", 30)
	segments := []*meta.Segment{
		meta.NewSegment([]meta.BlockMeta{b1, b2}),
		meta.NewSegment([]meta.BlockMeta{b3}),
	}
	locations := []meta.Location{meta.NewLocation("segments/s1"), meta.NewLocation("segments/s2")}

	rewritten := block("blocks/b1r", 8)
	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.ReplaceOp(b1, rewritten, 2, 0)))
	for _, appended := range []meta.BlockMeta{block("blocks/n1", 3), block("blocks/n2", 3), block("blocks/n3", 3)} {
		require.NoError(t, delta.Fold(mutation.AppendOp(appended)))
	}

	updates, err := delta.Apply(segments, locations, 2)
	require.NoError(t, err)
	require.Len(t, updates, 4)

	// the touched segment is rewritten with the replacement spliced in
	require.NotNil(t, updates[0].Manifest)
	assert.Equal(t, []meta.BlockMeta{rewritten, b2}, updates[0].Manifest.Blocks)
	assert.Equal(t, uint64(28), updates[0].Manifest.Summary.RowCount)

	// the untouched segment keeps its location
	assert.Nil(t, updates[1].Manifest)
	assert.Equal(t, locations[1], updates[1].Location)

	// appended blocks pack into trailing segments
	require.NotNil(t, updates[2].Manifest)
	assert.Len(t, updates[2].Manifest.Blocks, 2)
	require.NotNil(t, updates[3].Manifest)
	assert.Len(t, updates[3].Manifest.Blocks, 1)
}

func TestDeltaApplyDropsEmptySegments(t *testing.T) {
	b1 := block("blocks/b1", 10)
	segments := []*meta.Segment{meta.NewSegment([]meta.BlockMeta{b1})}
	locations := []meta.Location{meta.NewLocation("segments/s1")}

	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.RemoveOp(b1, 10)))

	updates, err := delta.Apply(segments, locations, 2)
	require.NoError(t, err)
	require.Empty(t, updates)
}

func TestDeltaApplyOverlap(t *testing.T) {
	segments := []*meta.Segment{meta.NewSegment([]meta.BlockMeta{block("blocks/b1", 10)})}
	locations := []meta.Location{meta.NewLocation("segments/s1")}

	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.RemoveOp(block("blocks/gone", 5), 5)))

	_, err := delta.Apply(segments, locations, 2)
	require.ErrorIs(t, err, mutation.ErrOverlap)
}

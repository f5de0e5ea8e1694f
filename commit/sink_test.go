package commit_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stratadb/strata/blockio"
	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/commit"
	"github.com/stratadb/strata/keyfilter"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *rows.Schema {
	return rows.NewSchema(
		rows.Column{Name: "id", Type: rows.TypeInt64},
		rows.Column{Name: "name", Type: rows.TypeString, Nullable: true},
	)
}

func batchOf(ids ...int64) *rows.Batch {
	batch := rows.NewBatch(testSchema())
	for _, id := range ids {
		batch.Append(rows.Row{rows.NewInt64(id), rows.NewString(fmt.Sprintf("name-%d", id))})
	}
	return batch
}

func writeBlock(t *testing.T, store storage.Provider, ids ...int64) meta.BlockMeta {
	t.Helper()
	writer := blockio.NewWriter(store, keyfilter.DefaultFalsePositiveRate)
	block, err := writer.WriteBlock(context.Background(), "events", batchOf(ids...), []int{0})
	require.NoError(t, err)
	return block
}

// seedTable writes a one-segment table and registers it with the catalog.
func seedTable(
	t *testing.T, store storage.Provider, cat catalog.Catalog, ids ...int64,
) (*meta.Snapshot, catalog.Entry, meta.BlockMeta) {
	t.Helper()
	ctx := context.Background()
	block := writeBlock(t, store, ids...)
	segment := meta.NewSegment([]meta.BlockMeta{block})
	segLoc, err := blockio.WriteSegment(ctx, store, "events", segment)
	require.NoError(t, err)
	snapshot := meta.NewSnapshot(testSchema())
	snapshot.Segments = []meta.Location{segLoc}
	snapshot.Summary = segment.Summary
	snapLoc, err := blockio.WriteSnapshot(ctx, store, "events", snapshot)
	require.NoError(t, err)
	entry, err := cat.CreateTable(ctx, "events", snapshot.ID, snapLoc)
	require.NoError(t, err)
	return snapshot, entry, block
}

func replaceDelta(
	t *testing.T, store storage.Provider, old meta.BlockMeta, rowsDeleted uint64, ids ...int64,
) *mutation.Delta {
	t.Helper()
	rewritten := writeBlock(t, store, ids...)
	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.ReplaceOp(old, rewritten, rowsDeleted, 0)))
	return delta
}

func appendDelta(t *testing.T, store storage.Provider, ids ...int64) *mutation.Delta {
	t.Helper()
	block := writeBlock(t, store, ids...)
	delta := mutation.NewDelta()
	require.NoError(t, delta.Fold(mutation.AppendOp(block)))
	return delta
}

func newSink(store storage.Provider, cat catalog.Catalog, opts ...commit.Option) *commit.Sink {
	reader := blockio.NewReader(store, 1<<20)
	return commit.NewSink(store, reader, cat, opts...)
}

func TestCommitPublishesNewVersion(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
	sink := newSink(store, cat)

	delta := replaceDelta(t, store, block, 2, 1, 2, 3)
	result, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, result.Rebases)
	assert.False(t, result.Dropped)
	assert.Equal(t, uint64(2), result.Entry.Version)
	require.NotNil(t, result.Snapshot.Previous)
	assert.Equal(t, base.ID, result.Snapshot.Previous.ID)
	assert.Equal(t, entry.Location, result.Snapshot.Previous.Location)
	assert.True(t, result.Snapshot.Timestamp.After(base.Timestamp))
	assert.Equal(t, uint64(3), result.Snapshot.Summary.RowCount)

	head, err := cat.Head(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, result.Entry, head)

	reader := blockio.NewReader(store, 1<<20)
	published, err := reader.Snapshot(ctx, head.Location)
	require.NoError(t, err)
	assert.Equal(t, result.Snapshot, published)

	// The base version remains fully readable.
	stale, err := reader.Snapshot(ctx, entry.Location)
	require.NoError(t, err)
	segments, err := reader.Segments(ctx, stale)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, []meta.BlockMeta{block}, segments[0].Blocks)
}

func TestCommitEmptyDeltaIsNoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, _ := seedTable(t, store, cat, 1, 2, 3)
	sink := newSink(store, cat)

	result, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, mutation.NewDelta()))
	require.NoError(t, err)
	assert.Same(t, base, result.Snapshot)
	assert.Equal(t, entry, result.Entry)
	assert.Equal(t, 0, result.Attempts)

	head, err := cat.Head(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.Version)
}

func TestCommitRetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
	sink := newSink(store, cat)

	// A concurrent commit appends a block without touching ours.
	winner, err := sink.Commit(ctx, "events", base, entry,
		mutation.NewLog(base.ID, appendDelta(t, store, 10, 11)))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), winner.Entry.Version)

	// Our mutation was built against the stale base and must rebase.
	delta := replaceDelta(t, store, block, 2, 1, 2, 3)
	result, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 1, result.Rebases)
	assert.Equal(t, uint64(3), result.Entry.Version)
	require.NotNil(t, result.Snapshot.Previous)
	assert.Equal(t, winner.Snapshot.ID, result.Snapshot.Previous.ID)

	// The final version carries both the winner's append and our rewrite.
	reader := blockio.NewReader(store, 1<<20)
	segments, err := reader.Segments(ctx, result.Snapshot)
	require.NoError(t, err)
	total := uint64(0)
	ids := map[int64]struct{}{}
	for _, segment := range segments {
		for _, b := range segment.Blocks {
			total += b.RowCount
			batch, err := reader.Block(ctx, b)
			require.NoError(t, err)
			for _, r := range batch.Rows {
				ids[r[0].Int] = struct{}{}
			}
		}
	}
	assert.Equal(t, uint64(5), total)
	for _, id := range []int64{1, 2, 3, 10, 11} {
		assert.Contains(t, ids, id)
	}
}

func TestCommitAbortsOnOverlap(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
	sink := newSink(store, cat)

	// A concurrent commit rewrites the same block we touched.
	winner, err := sink.Commit(ctx, "events", base, entry,
		mutation.NewLog(base.ID, replaceDelta(t, store, block, 1, 1, 2, 3, 4)))
	require.NoError(t, err)

	delta := replaceDelta(t, store, block, 2, 1, 2, 3)
	_, err = sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
	require.ErrorIs(t, err, commit.ErrAborted)
	require.ErrorIs(t, err, mutation.ErrOverlap)

	head, err := cat.Head(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, winner.Entry, head)
}

func TestCommitDropsOverlappedMaintenance(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
	sink := newSink(store, cat, commit.WithOverlapPolicy(commit.OverlapDrop))

	winner, err := sink.Commit(ctx, "events", base, entry,
		mutation.NewLog(base.ID, replaceDelta(t, store, block, 1, 1, 2, 3, 4)))
	require.NoError(t, err)

	delta := replaceDelta(t, store, block, 0, 1, 2, 3, 4, 5)
	result, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
	require.NoError(t, err)
	assert.True(t, result.Dropped)
	assert.Equal(t, winner.Entry, result.Entry)
	assert.Equal(t, winner.Snapshot.ID, result.Snapshot.ID)

	head, err := cat.Head(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, winner.Entry, head)
	history, err := cat.History(ctx, "events")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// failingStore passes writes through until the allowance runs out, then
// fails them. A negative allowance never fails.
type failingStore struct {
	storage.Provider
	writes int
}

func (s *failingStore) Put(ctx context.Context, id string, r io.Reader) error {
	if s.writes == 0 {
		return errors.New("disk full")
	}
	if s.writes > 0 {
		s.writes--
	}
	return s.Provider.Put(ctx, id, r)
}

func TestCommitFailureLeavesTableUntouched(t *testing.T) {
	cases := []struct {
		assertion string
		writes    int
	}{
		{"segment manifest write fails", 0},
		{"snapshot write fails", 1},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			ctx := context.Background()
			store := &failingStore{Provider: storage.NewMemStore(), writes: -1}
			cat := catalog.NewMemCatalog()
			base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
			sink := newSink(store, cat)

			delta := replaceDelta(t, store, block, 2, 1, 2, 3)
			store.writes = c.writes
			_, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
			require.ErrorContains(t, err, "disk full")

			// The pointer still names the base version, and it reads back
			// intact.
			head, err := cat.Head(ctx, "events")
			require.NoError(t, err)
			assert.Equal(t, entry, head)
			reader := blockio.NewReader(store, 1<<20)
			snapshot, err := reader.Snapshot(ctx, head.Location)
			require.NoError(t, err)
			segments, err := reader.Segments(ctx, snapshot)
			require.NoError(t, err)
			require.Len(t, segments, 1)
			assert.Equal(t, []meta.BlockMeta{block}, segments[0].Blocks)
		})
	}
}

// alwaysConflict fails every swap with a conflict pointing at the current
// head, so rebases always succeed and the attempt bound decides.
type alwaysConflict struct {
	catalog.Catalog
}

func (c *alwaysConflict) Swap(
	ctx context.Context, table string, expected uuid.UUID,
	snapshotID uuid.UUID, location meta.Location,
) (catalog.Entry, error) {
	head, err := c.Catalog.Head(ctx, table)
	if err != nil {
		return catalog.Entry{}, err
	}
	return catalog.Entry{}, catalog.NewCasConflictError(table, expected, head)
}

func TestCommitRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	base, entry, block := seedTable(t, store, cat, 1, 2, 3, 4, 5)
	sink := newSink(store, &alwaysConflict{cat},
		commit.WithMaxAttempts(3),
		commit.WithBackoff(func() backoff.BackOff {
			return backoff.NewConstantBackOff(0)
		}),
	)

	delta := replaceDelta(t, store, block, 2, 1, 2, 3)
	_, err := sink.Commit(ctx, "events", base, entry, mutation.NewLog(base.ID, delta))
	require.ErrorIs(t, err, commit.RetriesExhaustedError{})
	var exhausted commit.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	head, err := cat.Head(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, entry, head)
}

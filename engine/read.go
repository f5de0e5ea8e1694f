package engine

import (
	"context"
	"fmt"

	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/rows"
)

// Head returns the table's current catalog entry.
func (e *Engine) Head(ctx context.Context, table string) (catalog.Entry, error) {
	return e.cat.Head(ctx, table)
}

// Version returns the table's catalog entry at a historical version.
func (e *Engine) Version(ctx context.Context, table string, version uint64) (catalog.Entry, error) {
	return e.cat.GetVersion(ctx, table, version)
}

// History returns every version of the table in ascending order.
func (e *Engine) History(ctx context.Context, table string) ([]catalog.Entry, error) {
	return e.cat.History(ctx, table)
}

// Tables returns the current entry of every table.
func (e *Engine) Tables(ctx context.Context) ([]catalog.Entry, error) {
	return e.cat.Tables(ctx)
}

// Snapshot resolves the snapshot manifest a catalog entry points at.
func (e *Engine) Snapshot(ctx context.Context, entry catalog.Entry) (*meta.Snapshot, error) {
	return e.reader.Snapshot(ctx, entry.Location)
}

// Describe resolves a catalog entry down to its segment manifests.
func (e *Engine) Describe(
	ctx context.Context, entry catalog.Entry,
) (*meta.Snapshot, []*meta.Segment, error) {
	snapshot, err := e.reader.Snapshot(ctx, entry.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	segments, err := e.reader.Segments(ctx, snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve segments: %w", err)
	}
	return snapshot, segments, nil
}

// ReadAll returns every row of the table at its current version, in table
// order.
func (e *Engine) ReadAll(ctx context.Context, table string) (*rows.Batch, error) {
	entry, err := e.cat.Head(ctx, table)
	if err != nil {
		return nil, err
	}
	return e.ReadEntry(ctx, entry)
}

// ReadVersion returns every row of the table at a historical version.
func (e *Engine) ReadVersion(
	ctx context.Context, table string, version uint64,
) (*rows.Batch, error) {
	entry, err := e.cat.GetVersion(ctx, table, version)
	if err != nil {
		return nil, err
	}
	return e.ReadEntry(ctx, entry)
}

// ReadEntry returns every row of the version a catalog entry points at.
func (e *Engine) ReadEntry(ctx context.Context, entry catalog.Entry) (*rows.Batch, error) {
	snapshot, segments, err := e.Describe(ctx, entry)
	if err != nil {
		return nil, err
	}
	batch := rows.NewBatch(snapshot.Schema)
	for _, segment := range segments {
		for _, block := range segment.Blocks {
			b, err := e.reader.Block(ctx, block)
			if err != nil {
				return nil, err
			}
			batch.Append(b.Rows...)
		}
	}
	return batch, nil
}

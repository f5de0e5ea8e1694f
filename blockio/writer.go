package blockio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/stratadb/strata/keyfilter"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/storage"
)

/*
Writer persists blocks. A block write is two objects: the encoded rows, and an
optional key filter over the conflict keys. Object keys are freshly generated,
so writes never overwrite data referenced by an existing snapshot and failed
commits leave only unreferenced garbage.
*/

////////////////////////////////////////////////////////////////////////////////

// Writer writes block objects.
type Writer struct {
	store  storage.Provider
	fpRate float64
}

// NewWriter returns a block writer. Filters are sized for the given false
// positive rate.
func NewWriter(store storage.Provider, falsePositiveRate float64) *Writer {
	return &Writer{store: store, fpRate: falsePositiveRate}
}

// WriteBlock persists a batch as a new block of the table. If keyIdxs is
// nonempty, a key filter over those columns is written alongside and linked
// from the returned descriptor.
func (w *Writer) WriteBlock(
	ctx context.Context, table string, batch *rows.Batch, keyIdxs []int,
) (meta.BlockMeta, error) {
	data, err := Encode(batch)
	if err != nil {
		return meta.BlockMeta{}, fmt.Errorf("failed to encode block: %w", err)
	}
	key := meta.BlockKey(table)
	if err := w.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return meta.BlockMeta{}, fmt.Errorf("failed to write block: %w", err)
	}
	block := meta.BlockMeta{
		Location:    meta.NewLocation(key),
		RowCount:    uint64(batch.Len()),
		ByteSize:    uint64(len(data)),
		ColumnStats: meta.ComputeColumnStats(batch),
	}
	if len(keyIdxs) > 0 {
		filter := keyfilter.New(batch.Len(), w.fpRate)
		for _, row := range batch.Rows {
			filter.Add(rows.EncodeKey(row, keyIdxs).Digest())
		}
		filterKey := meta.FilterKey(table)
		if err := w.store.Put(ctx, filterKey, bytes.NewReader(filter.Serialize())); err != nil {
			return meta.BlockMeta{}, fmt.Errorf("failed to write key filter: %w", err)
		}
		block.KeyFilter = &meta.Location{Key: filterKey, Version: meta.FormatVersion}
		block.FilterSize = filter.Size()
	}
	return block, nil
}

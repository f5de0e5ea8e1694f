package blockio

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/storage"
	"github.com/stratadb/strata/util"
	"github.com/stratadb/strata/util/log"
)

/*
Manifest IO. Snapshots and segment manifests are JSON objects; they are small
relative to blocks and read often, so the reader caches them aggressively.
Writes stream the encoder straight into the storage provider.
*/

////////////////////////////////////////////////////////////////////////////////

// WriteSnapshot persists a snapshot manifest and returns its location.
func WriteSnapshot(
	ctx context.Context, store storage.Provider, table string, snapshot *meta.Snapshot,
) (meta.Location, error) {
	key := meta.SnapshotKey(table, snapshot.ID)
	n, err := writeManifest(ctx, store, key, snapshot)
	if err != nil {
		return meta.Location{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Debugf(ctx, "wrote snapshot %s (%d bytes)", key, n)
	return meta.NewLocation(key), nil
}

// WriteSegment persists a segment manifest and returns its location.
func WriteSegment(
	ctx context.Context, store storage.Provider, table string, segment *meta.Segment,
) (meta.Location, error) {
	key := meta.SegmentKey(table)
	n, err := writeManifest(ctx, store, key, segment)
	if err != nil {
		return meta.Location{}, fmt.Errorf("failed to write segment: %w", err)
	}
	log.Debugf(ctx, "wrote segment %s (%d bytes)", key, n)
	return meta.NewLocation(key), nil
}

func writeManifest(
	ctx context.Context, store storage.Provider, key string, manifest any,
) (int, error) {
	var n int
	err := util.RunPipe(ctx, func(_ context.Context, w io.Writer) error {
		counter := util.NewCountingWriter(w)
		if err := json.NewEncoder(counter).Encode(manifest); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		n = counter.Count()
		return nil
	}, func(ctx context.Context, r io.Reader) error {
		return store.Put(ctx, key, r)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

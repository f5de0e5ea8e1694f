package blockio

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/stratadb/strata/keyfilter"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/storage"
	"github.com/stratadb/strata/util"
)

/*
Reader fetches and caches table objects. Every object is immutable under its
key, so cached entries never go stale. Blocks dominate memory and are held in
a byte-budgeted cache; filters and manifests are small and capped by count.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	filterCacheCount   = 1024
	manifestCacheCount = 256
)

type cachedBlock struct {
	batch *rows.Batch
	size  uint64
}

// Reader reads table objects through an LRU cache.
type Reader struct {
	store     storage.Provider
	blocks    *util.LRU[string, cachedBlock]
	filters   *util.LRU[string, *keyfilter.Filter]
	segments  *util.LRU[string, *meta.Segment]
	snapshots *util.LRU[string, *meta.Snapshot]
}

// NewReader returns a reader with the given block cache budget in bytes.
func NewReader(store storage.Provider, blockCacheBytes uint64) *Reader {
	return &Reader{
		store: store,
		blocks: util.NewLRU[string, cachedBlock](blockCacheBytes,
			util.WithSizer(func(c cachedBlock) uint64 { return c.size })),
		filters:   util.NewLRU[string, *keyfilter.Filter](filterCacheCount),
		segments:  util.NewLRU[string, *meta.Segment](manifestCacheCount),
		snapshots: util.NewLRU[string, *meta.Snapshot](manifestCacheCount),
	}
}

// Block returns the decoded rows of a block.
func (r *Reader) Block(ctx context.Context, block meta.BlockMeta) (*rows.Batch, error) {
	if cached, ok := r.blocks.Get(block.Location.Key); ok {
		return cached.batch, nil
	}
	data, err := r.fetch(ctx, block.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block: %w", err)
	}
	batch, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode block %s: %w", block.Location.Key, err)
	}
	if err := r.blocks.Put(block.Location.Key, cachedBlock{batch, uint64(len(data))}); err != nil {
		// block exceeds the cache budget; serve it uncached
		return batch, nil
	}
	return batch, nil
}

// Filter returns the block's key filter, or false if the block has none.
func (r *Reader) Filter(ctx context.Context, block meta.BlockMeta) (*keyfilter.Filter, bool, error) {
	if block.KeyFilter == nil {
		return nil, false, nil
	}
	if cached, ok := r.filters.Get(block.KeyFilter.Key); ok {
		return cached, true, nil
	}
	data, err := r.fetch(ctx, *block.KeyFilter)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch key filter: %w", err)
	}
	filter, err := keyfilter.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse key filter %s: %w", block.KeyFilter.Key, err)
	}
	r.filters.Put(block.KeyFilter.Key, filter)
	return filter, true, nil
}

// Segment returns a segment manifest.
func (r *Reader) Segment(ctx context.Context, location meta.Location) (*meta.Segment, error) {
	if cached, ok := r.segments.Get(location.Key); ok {
		return cached, nil
	}
	segment := &meta.Segment{}
	if err := r.readManifest(ctx, location, segment); err != nil {
		return nil, fmt.Errorf("failed to read segment %s: %w", location.Key, err)
	}
	if segment.FormatVersion > meta.FormatVersion {
		return nil, NewUnsupportedVersionError(segment.FormatVersion)
	}
	r.segments.Put(location.Key, segment)
	return segment, nil
}

// Segments resolves all segment manifests of a snapshot, in table order.
func (r *Reader) Segments(ctx context.Context, snapshot *meta.Snapshot) ([]*meta.Segment, error) {
	segments := make([]*meta.Segment, len(snapshot.Segments))
	for i, location := range snapshot.Segments {
		segment, err := r.Segment(ctx, location)
		if err != nil {
			return nil, err
		}
		segments[i] = segment
	}
	return segments, nil
}

// Snapshot returns a snapshot manifest.
func (r *Reader) Snapshot(ctx context.Context, location meta.Location) (*meta.Snapshot, error) {
	if cached, ok := r.snapshots.Get(location.Key); ok {
		return cached, nil
	}
	snapshot := &meta.Snapshot{}
	if err := r.readManifest(ctx, location, snapshot); err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", location.Key, err)
	}
	if snapshot.FormatVersion > meta.FormatVersion {
		return nil, NewUnsupportedVersionError(snapshot.FormatVersion)
	}
	r.snapshots.Put(location.Key, snapshot)
	return snapshot, nil
}

func (r *Reader) fetch(ctx context.Context, location meta.Location) ([]byte, error) {
	rc, err := r.store.Get(ctx, location.Key)
	if err != nil {
		return nil, err
	}
	defer util.MaybeWarn(ctx, rc.Close)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", location.Key, err)
	}
	return data, nil
}

func (r *Reader) readManifest(ctx context.Context, location meta.Location, manifest any) error {
	rc, err := r.store.Get(ctx, location.Key)
	if err != nil {
		return err
	}
	defer util.MaybeWarn(ctx, rc.Close)
	if err := json.NewDecoder(rc).Decode(manifest); err != nil {
		return fmt.Errorf("failed to decode manifest: %w", err)
	}
	return nil
}

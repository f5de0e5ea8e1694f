package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stratadb/strata/blockio"
	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/commit"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/pipeline"
	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/storage"
	"github.com/stratadb/strata/util/log"
)

/*
The engine ties the layers together. Tables live in a storage provider as
immutable snapshot, segment, and block objects; the catalog maps each table
name to its current snapshot. A mutation streams source batches through the
matching pipeline against the table's current version and commits the
resulting delta as a new version through the sink. Readers resolve whichever
version the catalog or the history hands them and never contend with writers.
*/

////////////////////////////////////////////////////////////////////////////////

// Engine is the entry point for table storage operations. It is safe for
// concurrent use; independent mutations proceed in parallel and serialize
// only at the catalog swap.
type Engine struct {
	store          storage.Provider
	cat            catalog.Catalog
	reader         *blockio.Reader
	writer         *blockio.Writer
	sink           *commit.Sink
	compactionSink *commit.Sink
	pool           *ants.Pool
	metrics        *metrics
	config         config
}

// New returns an engine over the supplied store and catalog.
func New(store storage.Provider, cat catalog.Catalog, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers <= 0 {
		workers = -1 // unbounded
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	compactionOpts := append(slices.Clone(cfg.commitOpts),
		commit.WithOverlapPolicy(commit.OverlapDrop))
	reader := blockio.NewReader(store, cfg.blockCacheBytes)
	return &Engine{
		store:          store,
		cat:            cat,
		reader:         reader,
		writer:         blockio.NewWriter(store, cfg.falsePositiveRate),
		sink:           commit.NewSink(store, reader, cat, cfg.commitOpts...),
		compactionSink: commit.NewSink(store, reader, cat, compactionOpts...),
		pool:           pool,
		metrics:        newMetrics(cfg.registerer),
		config:         cfg,
	}, nil
}

// Close releases the worker pool. Mutations already running are left to
// finish.
func (e *Engine) Close() {
	e.pool.Release()
}

// CreateTable registers an empty table with the given schema. The initial
// version has no segments.
func (e *Engine) CreateTable(
	ctx context.Context, table string, schema *rows.Schema,
) (catalog.Entry, error) {
	if schema == nil || len(schema.Columns) == 0 {
		return catalog.Entry{}, errors.New("schema has no columns")
	}
	snapshot := meta.NewSnapshot(schema)
	location, err := blockio.WriteSnapshot(ctx, e.store, table, snapshot)
	if err != nil {
		return catalog.Entry{}, err
	}
	entry, err := e.cat.CreateTable(ctx, table, snapshot.ID, location)
	if err != nil {
		return catalog.Entry{}, err
	}
	log.Infof(ctx, "created table %s at snapshot %s", table, snapshot.ID)
	return entry, nil
}

// Mutate streams the source's batches against the table's current version
// and commits the result as a new version. Key names the on-conflict columns
// used for matching; insert-only sources may pass none.
func (e *Engine) Mutate(
	ctx context.Context, table string, key []string, source pipeline.Source,
) (*commit.Result, error) {
	started := time.Now()
	ctx = log.AddTags(ctx, "table", table)
	base, entry, blocks, err := e.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pipeline.Config{
		Reader:          e.reader,
		Writer:          e.writer,
		Pool:            e.pool,
		Table:           table,
		Schema:          base.Schema,
		Key:             key,
		Blocks:          blocks,
		Partitions:      e.config.partitions,
		MaxRowsPerBlock: e.config.maxRowsPerBlock,
		ChannelDepth:    e.config.channelDepth,
	})
	if err != nil {
		return nil, err
	}
	delta, err := p.Run(ctx, &validatingSource{table: table, schema: base.Schema, inner: source})
	if err != nil {
		e.metrics.commits.WithLabelValues(table, "error").Inc()
		return nil, err
	}
	result, err := e.sink.Commit(ctx, table, base, entry, mutation.NewLog(base.ID, delta))
	e.observe(table, delta, result, err, started)
	return result, err
}

// Append inserts the batch's rows without matching.
func (e *Engine) Append(
	ctx context.Context, table string, batch *rows.Batch,
) (*commit.Result, error) {
	return e.Mutate(ctx, table, nil, pipeline.NewSliceSource(
		pipeline.SourceBatch{Action: pipeline.InsertOnly, Rows: batch},
	))
}

// Upsert merges the batch by the given key columns. Matched target rows are
// replaced; unmatched source rows insert.
func (e *Engine) Upsert(
	ctx context.Context, table string, key []string, batch *rows.Batch,
) (*commit.Result, error) {
	return e.Mutate(ctx, table, key, pipeline.NewSliceSource(
		pipeline.SourceBatch{Action: pipeline.Upsert, Rows: batch},
	))
}

// Delete removes the target rows matching the batch's keys. Keys without a
// match are ignored.
func (e *Engine) Delete(
	ctx context.Context, table string, key []string, batch *rows.Batch,
) (*commit.Result, error) {
	return e.Mutate(ctx, table, key, pipeline.NewSliceSource(
		pipeline.SourceBatch{Action: pipeline.DeleteMatched, Rows: batch},
	))
}

// resolve loads the table's current snapshot and flattens its block list.
func (e *Engine) resolve(
	ctx context.Context, table string,
) (*meta.Snapshot, catalog.Entry, []meta.BlockMeta, error) {
	entry, err := e.cat.Head(ctx, table)
	if err != nil {
		return nil, catalog.Entry{}, nil, err
	}
	base, err := e.reader.Snapshot(ctx, entry.Location)
	if err != nil {
		return nil, catalog.Entry{}, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	segments, err := e.reader.Segments(ctx, base)
	if err != nil {
		return nil, catalog.Entry{}, nil, fmt.Errorf("failed to resolve segments: %w", err)
	}
	var blocks []meta.BlockMeta
	for _, segment := range segments {
		blocks = append(blocks, segment.Blocks...)
	}
	return base, entry, blocks, nil
}

func (e *Engine) observe(
	table string, delta *mutation.Delta, result *commit.Result, err error, started time.Time,
) {
	e.metrics.commitSeconds.Observe(time.Since(started).Seconds())
	switch {
	case errors.Is(err, commit.ErrAborted):
		e.metrics.commits.WithLabelValues(table, "aborted").Inc()
	case errors.Is(err, commit.RetriesExhaustedError{}):
		e.metrics.commits.WithLabelValues(table, "retries-exhausted").Inc()
	case err != nil:
		e.metrics.commits.WithLabelValues(table, "error").Inc()
	case result.Dropped:
		e.metrics.commits.WithLabelValues(table, "dropped").Inc()
	default:
		e.metrics.commits.WithLabelValues(table, "committed").Inc()
	}
	if err != nil {
		return
	}
	if result.Attempts > 1 {
		e.metrics.casConflicts.Add(float64(result.Attempts - 1))
	}
	if result.Dropped {
		return
	}
	e.metrics.rowsMutated.WithLabelValues(table, "inserted").Add(float64(delta.RowsInserted()))
	e.metrics.rowsMutated.WithLabelValues(table, "updated").Add(float64(delta.RowsUpdated()))
	e.metrics.rowsMutated.WithLabelValues(table, "deleted").Add(float64(delta.RowsDeleted()))
	e.metrics.blocksWritten.WithLabelValues(table, "append").Add(float64(delta.BlocksAppended()))
	e.metrics.blocksWritten.WithLabelValues(table, "replace").Add(float64(delta.BlocksReplaced()))
}

// validatingSource rejects batches that do not match the table schema before
// they reach the pipeline.
type validatingSource struct {
	table  string
	schema *rows.Schema
	inner  pipeline.Source
}

func (s *validatingSource) Next(ctx context.Context) (*pipeline.SourceBatch, error) {
	batch, err := s.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	if batch.Rows == nil {
		return nil, fmt.Errorf("source batch for table %s has no rows", s.table)
	}
	if !batch.Rows.Schema.Equal(s.schema) {
		return nil, NewSchemaMismatchError(s.table)
	}
	if err := batch.Rows.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source batch: %w", err)
	}
	return batch, nil
}

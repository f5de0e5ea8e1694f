package pipeline

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/stratadb/strata/blockio"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/rows"
	"golang.org/x/sync/errgroup"
)

/*
The pipeline turns a stream of source batches into a mutation delta against one
table snapshot. A broadcast stage assigns each source row a global ordinal,
encodes its conflict key once, and routes it to the partitions whose blocks may
contain the key, pruning with key filters and column statistics. Partition
aggregators own disjoint subsets of the snapshot's blocks; each matches its
candidates against hash tables built over its blocks and accumulates per-block
deletions and replacements, then rewrites or removes the touched blocks when
the stream closes. A fan-in barrier merges the per-partition results, rejects
source rows claimed by more than one partition, folds the block operations into
a single delta, and hands unmatched upsert rows to the append stage, which
packs them into new blocks together with insert-only rows. Stages communicate
over bounded channels and cancel as a group.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	defaultMaxRowsPerBlock = 8192
	defaultChannelDepth    = 64
)

// Config assembles a pipeline over one table snapshot.
type Config struct {
	// Reader serves block and filter reads.
	Reader *blockio.Reader
	// Writer persists rewritten and appended blocks.
	Writer *blockio.Writer
	// Pool schedules the partition aggregators.
	Pool *ants.Pool
	// Table is the table the blocks belong to.
	Table string
	// Schema is the table schema; source batches must match it.
	Schema *rows.Schema
	// Key names the conflict key columns. It may be empty, in which case
	// only insert-only sources are accepted.
	Key []string
	// Blocks lists the snapshot's blocks in table order.
	Blocks []meta.BlockMeta
	// Partitions is the number of aggregator partitions.
	Partitions int
	// MaxRowsPerBlock caps the size of appended blocks.
	MaxRowsPerBlock int
	// ChannelDepth bounds the inter-stage channels.
	ChannelDepth int
}

// Pipeline matches source rows against a table snapshot and produces the
// mutation delta. A pipeline is built for one snapshot and runs once.
type Pipeline struct {
	reader     *blockio.Reader
	writer     *blockio.Writer
	pool       *ants.Pool
	table      string
	schema     *rows.Schema
	keyIdxs    []int
	keyNames   []string
	owned      [][]meta.BlockMeta
	partitions int
	maxRows    int
	depth      int
}

// New builds a pipeline from the supplied configuration.
func New(cfg Config) (*Pipeline, error) {
	keyIdxs, err := cfg.Schema.Indexes(cfg.Key...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict key: %w", err)
	}
	partitions := cfg.Partitions
	if partitions < 1 {
		partitions = 1
	}
	if partitions > len(cfg.Blocks) && len(cfg.Blocks) > 0 {
		partitions = len(cfg.Blocks)
	}
	maxRows := cfg.MaxRowsPerBlock
	if maxRows < 1 {
		maxRows = defaultMaxRowsPerBlock
	}
	depth := cfg.ChannelDepth
	if depth < 1 {
		depth = defaultChannelDepth
	}
	owned := make([][]meta.BlockMeta, partitions)
	for i, block := range cfg.Blocks {
		owned[i%partitions] = append(owned[i%partitions], block)
	}
	return &Pipeline{
		reader:     cfg.Reader,
		writer:     cfg.Writer,
		pool:       cfg.Pool,
		table:      cfg.Table,
		schema:     cfg.Schema,
		keyIdxs:    keyIdxs,
		keyNames:   cfg.Key,
		owned:      owned,
		partitions: partitions,
		maxRows:    maxRows,
		depth:      depth,
	}, nil
}

// run holds the channels and shared state of one pipeline execution.
type run struct {
	p          *Pipeline
	candidates []chan candidate
	inserts    chan rows.Row
	results    chan partitionResult
	appendDone chan appendOutcome
	upserts    []sourceRow
}

// Run drains the source and returns the resulting delta. An empty source
// yields an empty delta.
func (p *Pipeline) Run(ctx context.Context, source Source) (*mutation.Delta, error) {
	g, ctx := errgroup.WithContext(ctx)
	r := &run{
		p:          p,
		candidates: make([]chan candidate, p.partitions),
		inserts:    make(chan rows.Row, p.depth),
		results:    make(chan partitionResult, p.partitions),
		appendDone: make(chan appendOutcome, 1),
	}
	for i := range r.candidates {
		r.candidates[i] = make(chan candidate, p.depth)
	}
	for i := 0; i < p.partitions; i++ {
		agg := newAggregator(p, p.owned[i])
		ch := r.candidates[i]
		if err := p.pool.Submit(func() {
			r.results <- agg.run(ctx, ch)
		}); err != nil {
			for j := 0; j < i; j++ {
				close(r.candidates[j])
			}
			return nil, fmt.Errorf("failed to schedule partition aggregator: %w", err)
		}
	}
	g.Go(func() error {
		return r.broadcast(ctx, source)
	})
	g.Go(func() error {
		ops, err := p.appendRows(ctx, r.inserts)
		r.appendDone <- appendOutcome{ops: ops, err: err}
		return err
	})
	var delta *mutation.Delta
	g.Go(func() error {
		var err error
		delta, err = r.collect(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return delta, nil
}

// hits returns the partition-local indexes of the blocks that may contain the
// row's key.
func (p *Pipeline) hits(
	ctx context.Context, partition int, row rows.Row, digest rows.Digest,
) ([]int, error) {
	var hits []int
	for i, block := range p.owned[partition] {
		ok, err := p.mayContain(ctx, block, row, digest)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, i)
		}
	}
	return hits, nil
}

// mayContain prunes a block against the row's key, first through the block's
// key filter and otherwise through its column statistics. Blocks carrying
// neither are never pruned.
func (p *Pipeline) mayContain(
	ctx context.Context, block meta.BlockMeta, row rows.Row, digest rows.Digest,
) (bool, error) {
	filter, ok, err := p.reader.Filter(ctx, block)
	if err != nil {
		return false, fmt.Errorf("failed to load key filter: %w", err)
	}
	if ok {
		return filter.MayContain(digest), nil
	}
	if len(block.ColumnStats) == 0 {
		return true, nil
	}
	for i, idx := range p.keyIdxs {
		stats, ok := block.ColumnStats[p.keyNames[i]]
		if !ok {
			continue
		}
		if !stats.Contains(row[idx]) {
			return false, nil
		}
	}
	return true, nil
}

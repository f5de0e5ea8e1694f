package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stratadb/strata/commit"
	"github.com/stratadb/strata/keyfilter"
)

const (
	defaultPartitions      = 4
	defaultMaxRowsPerBlock = 8192
	defaultBlockCacheBytes = 1 << 28
	defaultChannelDepth    = 64
)

type config struct {
	workers             int
	partitions          int
	maxRowsPerBlock     int
	blockCacheBytes     uint64
	falsePositiveRate   float64
	channelDepth        int
	compactionThreshold int
	registerer          prometheus.Registerer
	commitOpts          []commit.Option
}

// Option is an option for the engine.
type Option func(*config)

// WithWorkers caps the shared worker pool. Each running mutation occupies one
// worker per partition for its duration, so the cap must cover the expected
// mutation concurrency times the partition count. A zero or negative value
// leaves the pool unbounded, which is the default.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithPartitions sets the number of matching partitions per mutation.
func WithPartitions(n int) Option {
	return func(c *config) {
		c.partitions = n
	}
}

// WithMaxRowsPerBlock caps the row count of written blocks.
func WithMaxRowsPerBlock(n int) Option {
	return func(c *config) {
		c.maxRowsPerBlock = n
	}
}

// WithBlockCacheBytes sets the byte budget of the block cache.
func WithBlockCacheBytes(n uint64) Option {
	return func(c *config) {
		c.blockCacheBytes = n
	}
}

// WithFalsePositiveRate sets the false positive rate of written key filters.
func WithFalsePositiveRate(rate float64) Option {
	return func(c *config) {
		c.falsePositiveRate = rate
	}
}

// WithChannelDepth bounds the channels between mutation pipeline stages.
func WithChannelDepth(n int) Option {
	return func(c *config) {
		c.channelDepth = n
	}
}

// WithCompactionThreshold sets the row count below which a block is eligible
// for compaction. Defaults to half the block row cap.
func WithCompactionThreshold(n int) Option {
	return func(c *config) {
		c.compactionThreshold = n
	}
}

// WithRegisterer sets the prometheus registerer for engine metrics. By
// default metrics land in a private registry; pass a real registerer to
// expose them.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithCommitOptions passes options through to the commit sink.
func WithCommitOptions(opts ...commit.Option) Option {
	return func(c *config) {
		c.commitOpts = append(c.commitOpts, opts...)
	}
}

func defaultConfig() config {
	return config{
		partitions:        defaultPartitions,
		maxRowsPerBlock:   defaultMaxRowsPerBlock,
		blockCacheBytes:   defaultBlockCacheBytes,
		falsePositiveRate: keyfilter.DefaultFalsePositiveRate,
		channelDepth:      defaultChannelDepth,
		registerer:        prometheus.NewRegistry(),
	}
}

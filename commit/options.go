package commit

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts bounds the compare-and-swap attempts per commit.
	DefaultMaxAttempts = 5
	// DefaultBlocksPerSegment caps the size of appended segment manifests.
	DefaultBlocksPerSegment = 1000

	defaultInitialBackoff = 20 * time.Millisecond
	defaultMaxBackoff     = time.Second
)

type config struct {
	maxAttempts      int
	blocksPerSegment int
	policy           OverlapPolicy
	newBackoff       func() backoff.BackOff
}

// Option is an option for the commit sink.
type Option func(*config)

// WithMaxAttempts sets the number of compare-and-swap attempts allowed before
// a commit fails with RetriesExhaustedError.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithBlocksPerSegment sets the maximum number of blocks per appended segment
// manifest.
func WithBlocksPerSegment(n int) Option {
	return func(c *config) {
		c.blocksPerSegment = n
	}
}

// WithOverlapPolicy sets the policy applied when a rebase fails because a
// concurrent commit rewrote one of the mutation's touched blocks.
func WithOverlapPolicy(policy OverlapPolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithBackoff sets the factory for the backoff schedule between conflict
// retries. Each commit draws a fresh schedule from the factory.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(c *config) {
		c.newBackoff = factory
	}
}

func defaultBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialBackoff
	bo.MaxInterval = defaultMaxBackoff
	bo.MaxElapsedTime = 0
	return bo
}

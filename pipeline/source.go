package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/stratadb/strata/rows"
)

// Action is the mutation semantics of one source batch.
type Action uint8

const (
	// Upsert replaces the matching target row, or inserts when unmatched.
	Upsert Action = iota + 1
	// DeleteMatched deletes the matching target row; unmatched rows are
	// ignored.
	DeleteMatched
	// InsertOnly inserts every row without matching.
	InsertOnly
)

func (a Action) String() string {
	switch a {
	case Upsert:
		return "upsert"
	case DeleteMatched:
		return "delete-matched"
	case InsertOnly:
		return "insert-only"
	default:
		return fmt.Sprintf("unknown (%d)", a)
	}
}

// SourceBatch is one batch of source rows sharing a mutation action.
type SourceBatch struct {
	Action Action
	Rows   *rows.Batch
}

// Source supplies a mutation's source batches. Next returns io.EOF when the
// stream ends.
type Source interface {
	Next(ctx context.Context) (*SourceBatch, error)
}

// SliceSource is an in-memory Source over a fixed set of batches.
type SliceSource struct {
	batches []SourceBatch
	next    int
}

// NewSliceSource returns a source yielding the supplied batches in order.
func NewSliceSource(batches ...SourceBatch) *SliceSource {
	return &SliceSource{batches: batches}
}

// Next returns the next batch, or io.EOF after the last one.
func (s *SliceSource) Next(_ context.Context) (*SourceBatch, error) {
	if s.next >= len(s.batches) {
		return nil, io.EOF
	}
	batch := &s.batches[s.next]
	s.next++
	return batch, nil
}

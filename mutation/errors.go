package mutation

import (
	"errors"
	"fmt"
)

// ErrOverlap indicates a rebase found that a concurrent commit touched the
// same blocks as this mutation.
var ErrOverlap = errors.New("mutation overlaps a concurrent commit")

// ConflictingOperationError indicates two block-level operations landed on
// the same block. Partitions own disjoint block sets, so this is an internal
// consistency failure, not a retryable conflict.
type ConflictingOperationError struct {
	Block string
}

// NewConflictingOperationError returns a new ConflictingOperationError for
// the block with the given object key.
func NewConflictingOperationError(block string) ConflictingOperationError {
	return ConflictingOperationError{Block: block}
}

func (e ConflictingOperationError) Error() string {
	return fmt.Sprintf("conflicting operations for block %s", e.Block)
}

func (e ConflictingOperationError) Is(target error) bool {
	_, ok := target.(ConflictingOperationError)
	return ok
}

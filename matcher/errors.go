package matcher

import (
	"fmt"

	"github.com/stratadb/strata/rows"
)

// MultipleMatchError indicates a conflict key matched more than one row, in
// either direction: one source row matching several target rows, or several
// source rows claiming the same target row.
type MultipleMatchError struct {
	Key rows.Key
}

// NewMultipleMatchError returns a new MultipleMatchError for the given key.
func NewMultipleMatchError(key rows.Key) MultipleMatchError {
	return MultipleMatchError{Key: key}
}

func (e MultipleMatchError) Error() string {
	return fmt.Sprintf("key %s matches multiple rows", e.Key)
}

func (e MultipleMatchError) Is(target error) bool {
	_, ok := target.(MultipleMatchError)
	return ok
}

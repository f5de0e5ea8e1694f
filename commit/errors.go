package commit

import (
	"errors"
	"fmt"
)

// ErrAborted marks a mutation terminated by the abort overlap policy.
var ErrAborted = errors.New("commit aborted")

type RetriesExhaustedError struct {
	Attempts int
}

func NewRetriesExhaustedError(attempts int) RetriesExhaustedError {
	return RetriesExhaustedError{attempts}
}

func (e RetriesExhaustedError) Error() string {
	return fmt.Sprintf("commit failed after %d attempts", e.Attempts)
}

func (e RetriesExhaustedError) Is(target error) bool {
	_, ok := target.(RetriesExhaustedError)
	return ok
}

package storage

import (
	"context"
	"errors"
	"io"
)

/*
Provider abstracts the object store holding table data: blocks, key filters,
and the manifests describing them. Objects are immutable once written and
referenced by opaque string ids; every id is written at most once, so
providers never need versioning or overwrite semantics.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object is not found.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface to an object store.
type Provider interface {
	// Put stores the contents of r under id.
	Put(ctx context.Context, id string, r io.Reader) error

	// Get returns a reader over the object stored under id, or
	// ErrObjectNotFound.
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// GetRange returns a reader over length bytes of the object starting
	// at offset.
	GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error)

	// Delete removes the object stored under id. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, id string) error
}

package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stratadb/strata/meta"
)

/*
The catalog maps table names to their current snapshot. It is the sole
serialization point for commits: a new table version becomes visible through
Swap, a compare-and-swap on the table's current snapshot ID. Losing writers
receive a CasConflictError carrying the winning snapshot, which commit retry
uses to rebase.

The catalog retains the full version history of each table. History rows are
written in the same transaction as the pointer swing, so the history is always
consistent with the current pointer.
*/

////////////////////////////////////////////////////////////////////////////////

// Entry records one table version.
type Entry struct {
	Table      string
	Version    uint64
	SnapshotID uuid.UUID
	Location   meta.Location
	Timestamp  time.Time
}

// Catalog is the interface for the table pointer service.
type Catalog interface {
	// CreateTable registers a table at version 1 with its initial snapshot.
	CreateTable(ctx context.Context, table string, snapshotID uuid.UUID, location meta.Location) (Entry, error)

	// Head returns the current version of the table.
	Head(ctx context.Context, table string) (Entry, error)

	// Swap atomically advances the table to a new snapshot, provided the
	// current snapshot ID equals expected. On mismatch it returns a
	// CasConflictError holding the actual current entry.
	Swap(ctx context.Context, table string, expected uuid.UUID,
		snapshotID uuid.UUID, location meta.Location) (Entry, error)

	// GetVersion returns the entry for a specific historical version.
	GetVersion(ctx context.Context, table string, version uint64) (Entry, error)

	// History returns all versions of the table in ascending order.
	History(ctx context.Context, table string) ([]Entry, error)

	// Tables returns the current entry of every table.
	Tables(ctx context.Context) ([]Entry, error)
}

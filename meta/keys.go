package meta

import (
	"fmt"

	"github.com/google/uuid"
)

/*
Object key layout. All objects belonging to a table live under a common
prefix. Keys embed a fresh UUID so that retried writes never collide with
objects referenced by other snapshots.
*/

////////////////////////////////////////////////////////////////////////////////

// SnapshotKey returns the object key for a snapshot.
func SnapshotKey(table string, id uuid.UUID) string {
	return fmt.Sprintf("tables/%s/snapshots/%s.json", table, id)
}

// SegmentKey returns the object key for a new segment manifest.
func SegmentKey(table string) string {
	return fmt.Sprintf("tables/%s/segments/%s.json", table, uuid.New())
}

// BlockKey returns the object key for a new block.
func BlockKey(table string) string {
	return fmt.Sprintf("tables/%s/blocks/%s.blk", table, uuid.New())
}

// FilterKey returns the object key for a new key filter.
func FilterKey(table string) string {
	return fmt.Sprintf("tables/%s/filters/%s.flt", table, uuid.New())
}

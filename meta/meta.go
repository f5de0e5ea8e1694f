package meta

import (
	"time"

	"github.com/google/uuid"
	"github.com/stratadb/strata/rows"
)

/*
The meta package defines the persistent table metadata: snapshots, segment
manifests, and block descriptors. A snapshot is the root of one immutable table
version. It lists segment locations in table order and links backward to its
predecessor, forming the version history. Segments list block descriptors.
Blocks hold the row data and are described here by location, stats, and an
optional membership filter.

All metadata objects are immutable once written. New table versions are
expressed by writing new objects and swinging the catalog pointer.
*/

////////////////////////////////////////////////////////////////////////////////

// FormatVersion is the version written into new metadata objects.
const FormatVersion uint32 = 1

// Location identifies a stored object and the format version it was written
// with.
type Location struct {
	Key     string `json:"key"`
	Version uint32 `json:"version"`
}

// NewLocation returns a location for key at the current format version.
func NewLocation(key string) Location {
	return Location{Key: key, Version: FormatVersion}
}

// SnapshotRef links a snapshot to its predecessor.
type SnapshotRef struct {
	ID       uuid.UUID `json:"id"`
	Location Location  `json:"location"`
}

// Snapshot is the root metadata object of one table version.
type Snapshot struct {
	ID            uuid.UUID    `json:"id"`
	FormatVersion uint32       `json:"formatVersion"`
	Previous      *SnapshotRef `json:"previous,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	Schema        *rows.Schema `json:"schema"`
	Segments      []Location   `json:"segments"`
	Summary       Statistics   `json:"summary"`
}

// NewSnapshot returns an empty initial snapshot for a table with the given
// schema.
func NewSnapshot(schema *rows.Schema) *Snapshot {
	return &Snapshot{
		ID:            uuid.New(),
		FormatVersion: FormatVersion,
		Timestamp:     time.Now().UTC(),
		Schema:        schema,
	}
}

// Ref returns a reference to the snapshot at the given location.
func (s *Snapshot) Ref(location Location) *SnapshotRef {
	return &SnapshotRef{ID: s.ID, Location: location}
}

// NextTimestamp returns now, advanced if required so that it lands strictly
// after prev. Snapshot timestamps increase along the version chain even under
// clock skew.
func NextTimestamp(prev time.Time, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}

// Segment is a manifest listing a run of blocks in table order.
type Segment struct {
	FormatVersion uint32      `json:"formatVersion"`
	Blocks        []BlockMeta `json:"blocks"`
	Summary       Statistics  `json:"summary"`
}

// NewSegment returns a segment manifest over blocks with a computed summary.
func NewSegment(blocks []BlockMeta) *Segment {
	return &Segment{
		FormatVersion: FormatVersion,
		Blocks:        blocks,
		Summary:       SummarizeBlocks(blocks),
	}
}

// BlockMeta describes one immutable block object.
type BlockMeta struct {
	Location    Location               `json:"location"`
	RowCount    uint64                 `json:"rowCount"`
	ByteSize    uint64                 `json:"byteSize"`
	ColumnStats map[string]ColumnStats `json:"columnStats,omitempty"`
	KeyFilter   *Location              `json:"keyFilter,omitempty"`
	FilterSize  uint64                 `json:"filterSize,omitempty"`
}

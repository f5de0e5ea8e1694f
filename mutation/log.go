package mutation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stratadb/strata/meta"
)

// Log carries a finalized delta across commit retries. It records the
// snapshot the delta was derived against; after a lost CAS race it can be
// rebased onto the winning snapshot, provided no touched block was also
// touched by the concurrent commit.
type Log struct {
	base    uuid.UUID
	delta   *Delta
	rebases int
}

// NewLog returns a log for a delta derived against the snapshot with the
// given id.
func NewLog(base uuid.UUID, delta *Delta) *Log {
	return &Log{base: base, delta: delta}
}

// Base returns the id of the snapshot the delta currently applies to.
func (l *Log) Base() uuid.UUID {
	return l.base
}

// Delta returns the logged delta.
func (l *Log) Delta() *Delta {
	return l.delta
}

// Rebases returns the number of successful rebases.
func (l *Log) Rebases() int {
	return l.rebases
}

// Rebase retargets the delta at a newer snapshot. Blocks are immutable, so a
// touched block still present in the new base was untouched by the
// intervening commits and every operation remains valid; a touched block
// that is gone was rewritten or removed concurrently, and the rebase fails
// with ErrOverlap. Only metadata is examined; source data is never re-read.
func (l *Log) Rebase(snapshot *meta.Snapshot, segments []*meta.Segment) error {
	present := make(map[string]struct{})
	for _, segment := range segments {
		for _, block := range segment.Blocks {
			present[block.Location.Key] = struct{}{}
		}
	}
	for _, key := range l.delta.TouchedKeys() {
		if _, ok := present[key]; !ok {
			return fmt.Errorf("%w: block %s was rewritten by a concurrent commit", ErrOverlap, key)
		}
	}
	l.base = snapshot.ID
	l.rebases++
	return nil
}

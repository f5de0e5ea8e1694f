package commit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stratadb/strata/blockio"
	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/mutation"
	"github.com/stratadb/strata/storage"
	"github.com/stratadb/strata/util/log"
)

/*
Commit sink. A finished mutation delta becomes a table version here: the sink
builds the candidate segment list against its base snapshot, writes the new
manifests, and swings the catalog pointer with a compare-and-swap. Nothing
references the new objects until the swap lands, so a failed commit leaves
only unreferenced garbage behind. After a lost swap the sink rebases the
mutation onto the winning snapshot and tries again, up to a bounded number of
attempts. A rebase fails when the winner rewrote one of the mutation's touched
blocks; the overlap policy then decides between aborting the mutation and
forfeiting it to the winner.
*/

////////////////////////////////////////////////////////////////////////////////

// State identifies one phase of a commit.
type State uint8

const (
	// StateBuilding combines the base snapshot's segments with the delta.
	// No snapshot ID exists yet.
	StateBuilding State = iota + 1
	// StateWriting persists the candidate manifests under a freshly
	// allocated snapshot ID.
	StateWriting
	// StateCasAttempt swings the catalog pointer to the candidate.
	StateCasAttempt
	// StateCommitted is terminal success.
	StateCommitted
	// StateConflictRetry rebases the mutation after a lost swap.
	StateConflictRetry
	// StateAborted is terminal failure under the abort overlap policy.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateWriting:
		return "writing"
	case StateCasAttempt:
		return "cas-attempt"
	case StateCommitted:
		return "committed"
	case StateConflictRetry:
		return "conflict-retry"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown (%d)", s)
	}
}

// Result describes a finished commit.
type Result struct {
	// Snapshot is the table version observable after the commit: the
	// committed candidate, or the winning snapshot when the mutation was
	// dropped.
	Snapshot *meta.Snapshot
	// Entry is the catalog entry of that version.
	Entry catalog.Entry
	// Attempts is the number of compare-and-swap attempts made.
	Attempts int
	// Rebases is the number of successful rebases.
	Rebases int
	// Dropped reports that the mutation was forfeited to an overlapping
	// winner under OverlapDrop.
	Dropped bool
}

// Sink commits mutation deltas. A sink is stateless across commits and safe
// for concurrent use.
type Sink struct {
	store  storage.Provider
	reader *blockio.Reader
	cat    catalog.Catalog
	config config
}

// NewSink returns a commit sink over the supplied store and catalog.
func NewSink(
	store storage.Provider, reader *blockio.Reader, cat catalog.Catalog, opts ...Option,
) *Sink {
	cfg := config{
		maxAttempts:      DefaultMaxAttempts,
		blocksPerSegment: DefaultBlocksPerSegment,
		policy:           OverlapAbort,
		newBackoff:       defaultBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sink{store: store, reader: reader, cat: cat, config: cfg}
}

// Commit publishes the mutation as a new version of the table. The base
// snapshot and entry must be the table version the mutation was built
// against. An empty delta commits nothing and returns the base version.
func (s *Sink) Commit(
	ctx context.Context, table string, base *meta.Snapshot, entry catalog.Entry,
	mlog *mutation.Log,
) (*Result, error) {
	if mlog.Delta().Empty() {
		return &Result{Snapshot: base, Entry: entry}, nil
	}
	bo := s.config.newBackoff()
	state := StateBuilding
	attempts := 0
	var updates []mutation.SegmentUpdate
	var candidate *meta.Snapshot
	var location meta.Location
	var committed catalog.Entry
	var overlap error
	for {
		switch state {
		case StateBuilding:
			segments, err := s.reader.Segments(ctx, base)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve base segments: %w", err)
			}
			updates, err = mlog.Delta().Apply(segments, base.Segments, s.config.blocksPerSegment)
			if err != nil {
				return nil, fmt.Errorf("failed to build candidate version: %w", err)
			}
			state = StateWriting
		case StateWriting:
			var err error
			candidate, location, err = s.write(ctx, table, base, entry, updates)
			if err != nil {
				return nil, err
			}
			state = StateCasAttempt
		case StateCasAttempt:
			attempts++
			next, err := s.cat.Swap(ctx, table, base.ID, candidate.ID, location)
			if err == nil {
				committed = next
				state = StateCommitted
				continue
			}
			if !errors.Is(err, catalog.CasConflictError{}) {
				return nil, fmt.Errorf("failed to swap table pointer: %w", err)
			}
			state = StateConflictRetry
		case StateCommitted:
			log.Infow(ctx, "committed new version",
				"table", table, "version", committed.Version,
				"snapshot", candidate.ID, "attempts", attempts,
			)
			return &Result{
				Snapshot: candidate,
				Entry:    committed,
				Attempts: attempts,
				Rebases:  mlog.Rebases(),
			}, nil
		case StateConflictRetry:
			if attempts >= s.config.maxAttempts {
				return nil, NewRetriesExhaustedError(attempts)
			}
			current, err := s.cat.Head(ctx, table)
			if err != nil {
				return nil, fmt.Errorf("failed to read current version: %w", err)
			}
			winner, err := s.reader.Snapshot(ctx, current.Location)
			if err != nil {
				return nil, fmt.Errorf("failed to read winning snapshot: %w", err)
			}
			segments, err := s.reader.Segments(ctx, winner)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve winning segments: %w", err)
			}
			if err := mlog.Rebase(winner, segments); err != nil {
				if !errors.Is(err, mutation.ErrOverlap) {
					return nil, err
				}
				if s.config.policy == OverlapDrop {
					log.Debugf(ctx, "dropping mutation on %s, superseded by snapshot %s",
						table, winner.ID)
					return &Result{
						Snapshot: winner,
						Entry:    current,
						Attempts: attempts,
						Rebases:  mlog.Rebases(),
						Dropped:  true,
					}, nil
				}
				overlap = err
				state = StateAborted
				continue
			}
			log.Debugf(ctx, "rebased mutation on %s onto snapshot %s (attempt %d)",
				table, winner.ID, attempts)
			if err := s.delay(ctx, bo); err != nil {
				return nil, err
			}
			base, entry = winner, current
			state = StateBuilding
		case StateAborted:
			return nil, fmt.Errorf("%w: %w", ErrAborted, overlap)
		default:
			return nil, fmt.Errorf("commit reached invalid state %s", state)
		}
	}
}

// write persists the candidate's segment manifests and snapshot, returning
// the snapshot and its location. The candidate's summary is the fold of its
// segment summaries.
func (s *Sink) write(
	ctx context.Context, table string, base *meta.Snapshot, entry catalog.Entry,
	updates []mutation.SegmentUpdate,
) (*meta.Snapshot, meta.Location, error) {
	locations := make([]meta.Location, 0, len(updates))
	summary := meta.Statistics{}
	for _, update := range updates {
		manifest := update.Manifest
		if manifest == nil {
			var err error
			manifest, err = s.reader.Segment(ctx, update.Location)
			if err != nil {
				return nil, meta.Location{}, fmt.Errorf("failed to read kept segment: %w", err)
			}
			locations = append(locations, update.Location)
		} else {
			location, err := blockio.WriteSegment(ctx, s.store, table, manifest)
			if err != nil {
				return nil, meta.Location{}, err
			}
			locations = append(locations, location)
		}
		summary = meta.MergeStatistics(summary, manifest.Summary)
	}
	candidate := &meta.Snapshot{
		ID:            uuid.New(),
		FormatVersion: meta.FormatVersion,
		Previous:      base.Ref(entry.Location),
		Timestamp:     meta.NextTimestamp(base.Timestamp, time.Now().UTC()),
		Schema:        base.Schema,
		Segments:      locations,
		Summary:       summary,
	}
	location, err := blockio.WriteSnapshot(ctx, s.store, table, candidate)
	if err != nil {
		return nil, meta.Location{}, err
	}
	return candidate, location, nil
}

func (s *Sink) delay(ctx context.Context, bo backoff.BackOff) error {
	interval := bo.NextBackOff()
	if interval <= 0 {
		return nil
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

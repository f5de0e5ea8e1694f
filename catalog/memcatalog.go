package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratadb/strata/meta"
	"github.com/stratadb/strata/util"
)

/*
In-memory catalog. Used in tests and ephemeral deployments. The mutex stands
in for the serializability of a real metadata database; compare-and-swap
semantics are identical to the SQL implementation.
*/

////////////////////////////////////////////////////////////////////////////////

type memCatalog struct {
	mtx    *sync.Mutex
	tables map[string][]Entry
}

// NewMemCatalog returns a new in-memory catalog.
func NewMemCatalog() Catalog {
	return &memCatalog{
		mtx:    &sync.Mutex{},
		tables: make(map[string][]Entry),
	}
}

func (c *memCatalog) CreateTable(
	_ context.Context, table string, snapshotID uuid.UUID, location meta.Location,
) (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if _, ok := c.tables[table]; ok {
		return Entry{}, NewTableExistsError(table)
	}
	entry := Entry{
		Table:      table,
		Version:    1,
		SnapshotID: snapshotID,
		Location:   location,
		Timestamp:  time.Now().UTC(),
	}
	c.tables[table] = []Entry{entry}
	return entry, nil
}

func (c *memCatalog) Head(_ context.Context, table string) (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	history, ok := c.tables[table]
	if !ok {
		return Entry{}, NewTableNotFoundError(table)
	}
	return history[len(history)-1], nil
}

func (c *memCatalog) Swap(
	_ context.Context, table string, expected uuid.UUID,
	snapshotID uuid.UUID, location meta.Location,
) (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	history, ok := c.tables[table]
	if !ok {
		return Entry{}, NewTableNotFoundError(table)
	}
	current := history[len(history)-1]
	if current.SnapshotID != expected {
		return Entry{}, NewCasConflictError(table, expected, current)
	}
	entry := Entry{
		Table:      table,
		Version:    current.Version + 1,
		SnapshotID: snapshotID,
		Location:   location,
		Timestamp:  time.Now().UTC(),
	}
	c.tables[table] = append(history, entry)
	return entry, nil
}

func (c *memCatalog) GetVersion(_ context.Context, table string, version uint64) (Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	history, ok := c.tables[table]
	if !ok {
		return Entry{}, NewTableNotFoundError(table)
	}
	for _, entry := range history {
		if entry.Version == version {
			return entry, nil
		}
	}
	return Entry{}, NewVersionNotFoundError(table, version)
}

func (c *memCatalog) History(_ context.Context, table string) ([]Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	history, ok := c.tables[table]
	if !ok {
		return nil, NewTableNotFoundError(table)
	}
	entries := make([]Entry, len(history))
	copy(entries, history)
	return entries, nil
}

func (c *memCatalog) Tables(_ context.Context) ([]Entry, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	entries := make([]Entry, 0, len(c.tables))
	for _, name := range util.Okeys(c.tables) {
		history := c.tables[name]
		entries = append(entries, history[len(history)-1])
	}
	return entries, nil
}

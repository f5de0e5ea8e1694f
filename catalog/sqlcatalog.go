package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stratadb/strata/meta"
)

/*
SQL-backed catalog. Any database/sql driver with serializable transaction
semantics will do; tests and the standalone deployment use sqlite. The
compare-and-swap is a guarded update on the tables row, with the row count
distinguishing success from conflict.
*/

////////////////////////////////////////////////////////////////////////////////

type sqlCatalog struct {
	db *sql.DB
}

// NewSQLCatalog returns a catalog stored in the supplied database.
func NewSQLCatalog(db *sql.DB) (Catalog, error) {
	c := &sqlCatalog{db: db}
	if err := c.initialize(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *sqlCatalog) initialize() error {
	var maxApplied int64
	err := c.db.QueryRow("select max(version) from schema_migrations").Scan(&maxApplied)
	if err == nil && maxApplied == 1 {
		return nil
	}
	if _, err := c.db.Exec(`
	create table if not exists tables (
		name text primary key,
		version bigint not null,
		snapshot_id text not null,
		location text not null,
		format_version bigint not null,
		timestamp text not null
	);

	create table if not exists table_history (
		name text not null,
		version bigint not null,
		snapshot_id text not null,
		location text not null,
		format_version bigint not null,
		timestamp text not null,
		primary key (name, version)
	);

	create table schema_migrations(
		version bigint not null,
		timestamp text not null default current_timestamp
	);

	insert into schema_migrations(version) values (1);
	`); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (c *sqlCatalog) CreateTable(
	ctx context.Context, table string, snapshotID uuid.UUID, location meta.Location,
) (Entry, error) {
	entry := Entry{
		Table:      table,
		Version:    1,
		SnapshotID: snapshotID,
		Location:   location,
		Timestamp:  time.Now().UTC(),
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var exists int
	err = tx.QueryRowContext(ctx, `select count(*) from tables where name = $1`, table).Scan(&exists)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to check for table: %w", err)
	}
	if exists > 0 {
		return Entry{}, NewTableExistsError(table)
	}
	if _, err := tx.ExecContext(ctx, `
	insert into tables (name, version, snapshot_id, location, format_version, timestamp)
	values ($1, $2, $3, $4, $5, $6)`,
		table, entry.Version, snapshotID.String(), location.Key, location.Version,
		entry.Timestamp.Format(time.RFC3339Nano),
	); err != nil {
		return Entry{}, fmt.Errorf("failed to insert table: %w", err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

func (c *sqlCatalog) Head(ctx context.Context, table string) (Entry, error) {
	entry, err := scanEntry(c.db.QueryRowContext(ctx, `
	select name, version, snapshot_id, location, format_version, timestamp
	from tables where name = $1`, table))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, NewTableNotFoundError(table)
		}
		return Entry{}, fmt.Errorf("failed to read table head: %w", err)
	}
	return entry, nil
}

func (c *sqlCatalog) Swap(
	ctx context.Context, table string, expected uuid.UUID,
	snapshotID uuid.UUID, location meta.Location,
) (Entry, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	current, err := scanEntry(tx.QueryRowContext(ctx, `
	select name, version, snapshot_id, location, format_version, timestamp
	from tables where name = $1`, table))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, NewTableNotFoundError(table)
		}
		return Entry{}, fmt.Errorf("failed to read table head: %w", err)
	}
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
	result, err := tx.ExecContext(ctx, `
	update tables
	set version = $1, snapshot_id = $2, location = $3, format_version = $4, timestamp = $5
	where name = $6 and snapshot_id = $7`,
		entry.Version, snapshotID.String(), location.Key, location.Version,
		entry.Timestamp.Format(time.RFC3339Nano), table, expected.String(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to update table: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// lost a race after the read; report whoever won
		tx.Rollback()
		actual, err := c.Head(ctx, table)
		if err != nil {
			return Entry{}, err
		}
		return Entry{}, NewCasConflictError(table, expected, actual)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

func (c *sqlCatalog) GetVersion(ctx context.Context, table string, version uint64) (Entry, error) {
	entry, err := scanEntry(c.db.QueryRowContext(ctx, `
	select name, version, snapshot_id, location, format_version, timestamp
	from table_history where name = $1 and version = $2`, table, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, NewVersionNotFoundError(table, version)
		}
		return Entry{}, fmt.Errorf("failed to read table version: %w", err)
	}
	return entry, nil
}

func (c *sqlCatalog) History(ctx context.Context, table string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
	select name, version, snapshot_id, location, format_version, timestamp
	from table_history where name = $1 order by version asc`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, NewTableNotFoundError(table)
	}
	return entries, nil
}

func (c *sqlCatalog) Tables(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
	select name, version, snapshot_id, location, format_version, timestamp
	from tables order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry Entry) error {
	if _, err := tx.ExecContext(ctx, `
	insert into table_history (name, version, snapshot_id, location, format_version, timestamp)
	values ($1, $2, $3, $4, $5, $6)`,
		entry.Table, entry.Version, entry.SnapshotID.String(),
		entry.Location.Key, entry.Location.Version,
		entry.Timestamp.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (Entry, error) {
	var entry Entry
	var snapshotID, timestamp string
	if err := row.Scan(
		&entry.Table, &entry.Version, &snapshotID,
		&entry.Location.Key, &entry.Location.Version, &timestamp,
	); err != nil {
		return Entry{}, err
	}
	parsed, err := uuid.Parse(snapshotID)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse snapshot ID: %w", err)
	}
	entry.SnapshotID = parsed
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	entry.Timestamp = ts
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

type TableNotFoundError struct {
	Table string
}

func NewTableNotFoundError(table string) TableNotFoundError {
	return TableNotFoundError{table}
}

func (e TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s not found", e.Table)
}

func (e TableNotFoundError) Is(target error) bool {
	_, ok := target.(TableNotFoundError)
	return ok
}

type TableExistsError struct {
	Table string
}

func NewTableExistsError(table string) TableExistsError {
	return TableExistsError{table}
}

func (e TableExistsError) Error() string {
	return fmt.Sprintf("table %s already exists", e.Table)
}

func (e TableExistsError) Is(target error) bool {
	_, ok := target.(TableExistsError)
	return ok
}

type VersionNotFoundError struct {
	Table   string
	Version uint64
}

func NewVersionNotFoundError(table string, version uint64) VersionNotFoundError {
	return VersionNotFoundError{table, version}
}

func (e VersionNotFoundError) Error() string {
	return fmt.Sprintf("table %s has no version %d", e.Table, e.Version)
}

func (e VersionNotFoundError) Is(target error) bool {
	_, ok := target.(VersionNotFoundError)
	return ok
}

// CasConflictError is returned by Swap when the table has moved past the
// expected snapshot. Actual holds the entry that won.
type CasConflictError struct {
	Table    string
	Expected uuid.UUID
	Actual   Entry
}

func NewCasConflictError(table string, expected uuid.UUID, actual Entry) CasConflictError {
	return CasConflictError{table, expected, actual}
}

func (e CasConflictError) Error() string {
	return fmt.Sprintf("table %s is at snapshot %s; expected %s",
		e.Table, e.Actual.SnapshotID, e.Expected)
}

func (e CasConflictError) Is(target error) bool {
	_, ok := target.(CasConflictError)
	return ok
}

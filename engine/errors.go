package engine

import (
	"fmt"
)

type SchemaMismatchError struct {
	Table string
}

func NewSchemaMismatchError(table string) SchemaMismatchError {
	return SchemaMismatchError{table}
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("source schema does not match table %s", e.Table)
}

func (e SchemaMismatchError) Is(target error) bool {
	_, ok := target.(SchemaMismatchError)
	return ok
}

package rows

import (
	"fmt"
)

/*
The rows package contains the in-memory row representation shared by ingestion
and mutation. A Batch is a schema plus a slice of rows. Batches are the unit of
exchange between pipeline stages; persistent storage holds them in columnar
block objects.
*/

////////////////////////////////////////////////////////////////////////////////

// Column describes a single column of a schema.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Schema describes the column layout of a table.
type Schema struct {
	Columns []Column `json:"columns"`
}

// NewSchema returns a schema over the supplied columns.
func NewSchema(columns ...Column) *Schema {
	return &Schema{Columns: columns}
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Indexes resolves a list of column names to positions.
func (s *Schema) Indexes(names ...string) ([]int, error) {
	idxs := make([]int, len(names))
	for i, name := range names {
		idx, ok := s.Index(name)
		if !ok {
			return nil, NewUnknownColumnError(name)
		}
		idxs[i] = idx
	}
	return idxs, nil
}

// Equal reports whether two schemas have the same columns in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if len(s.Columns) != len(o.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if c != o.Columns[i] {
			return false
		}
	}
	return true
}

// Row is a single row of values, laid out in schema order.
type Row []Value

// Batch is a slice of rows with a common schema.
type Batch struct {
	Schema *Schema
	Rows   []Row
}

// NewBatch returns an empty batch with the given schema.
func NewBatch(schema *Schema) *Batch {
	return &Batch{Schema: schema}
}

// Append adds rows to the batch.
func (b *Batch) Append(rows ...Row) {
	b.Rows = append(b.Rows, rows...)
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// Take returns a new batch containing the rows at the supplied positions. Rows
// are shared with the receiver, not copied.
func (b *Batch) Take(idxs []int) *Batch {
	taken := make([]Row, len(idxs))
	for i, idx := range idxs {
		taken[i] = b.Rows[idx]
	}
	return &Batch{Schema: b.Schema, Rows: taken}
}

// Validate checks every row against the schema.
func (b *Batch) Validate() error {
	for i, row := range b.Rows {
		if len(row) != len(b.Schema.Columns) {
			return fmt.Errorf("row %d has %d values; schema has %d columns",
				i, len(row), len(b.Schema.Columns))
		}
		for j, value := range row {
			col := b.Schema.Columns[j]
			if value.Null {
				if !col.Nullable {
					return NewNotNullableError(col.Name)
				}
				continue
			}
			if value.Type != col.Type {
				return NewTypeMismatchError(col.Name, col.Type, value.Type)
			}
		}
	}
	return nil
}

package rows_test

import (
	"testing"

	"github.com/stratadb/strata/rows"
	"github.com/stretchr/testify/require"
)

func testSchema() *rows.Schema {
	return rows.NewSchema(
		rows.Column{Name: "id", Type: rows.TypeInt64},
		rows.Column{Name: "name", Type: rows.TypeString},
		rows.Column{Name: "score", Type: rows.TypeFloat64, Nullable: true},
	)
}

func TestSchemaIndex(t *testing.T) {
	s := testSchema()
	cases := []struct {
		assertion string
		name      string
		idx       int
		ok        bool
	}{
		{"first column", "id", 0, true},
		{"last column", "score", 2, true},
		{"missing column", "nope", 0, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			idx, ok := s.Index(c.name)
			require.Equal(t, c.ok, ok)
			require.Equal(t, c.idx, idx)
		})
	}
}

func TestSchemaIndexes(t *testing.T) {
	s := testSchema()
	t.Run("resolves in order", func(t *testing.T) {
		idxs, err := s.Indexes("name", "id")
		require.NoError(t, err)
		require.Equal(t, []int{1, 0}, idxs)
	})
	t.Run("unknown column", func(t *testing.T) {
		_, err := s.Indexes("id", "nope")
		require.ErrorIs(t, err, rows.UnknownColumnError{})
	})
}

func TestSchemaEqual(t *testing.T) {
	cases := []struct {
		assertion string
		other     *rows.Schema
		equal     bool
	}{
		{"identical schemas", testSchema(), true},
		{"fewer columns", rows.NewSchema(testSchema().Columns[:2]...), false},
		{"different type", rows.NewSchema(
			rows.Column{Name: "id", Type: rows.TypeString},
			rows.Column{Name: "name", Type: rows.TypeString},
			rows.Column{Name: "score", Type: rows.TypeFloat64, Nullable: true},
		), false},
		{"different nullability", rows.NewSchema(
			rows.Column{Name: "id", Type: rows.TypeInt64},
			rows.Column{Name: "name", Type: rows.TypeString},
			rows.Column{Name: "score", Type: rows.TypeFloat64},
		), false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			require.Equal(t, c.equal, testSchema().Equal(c.other))
		})
	}
}

func TestBatchValidate(t *testing.T) {
	s := testSchema()
	cases := []struct {
		assertion string
		row       rows.Row
		ok        bool
	}{
		{
			"valid row",
			rows.Row{rows.NewInt64(1), rows.NewString("a"), rows.NewFloat64(0.5)},
			true,
		},
		{
			"null in nullable column",
			rows.Row{rows.NewInt64(1), rows.NewString("a"), rows.NewNull(rows.TypeFloat64)},
			true,
		},
		{
			"null in non-nullable column",
			rows.Row{rows.NewNull(rows.TypeInt64), rows.NewString("a"), rows.NewFloat64(0.5)},
			false,
		},
		{
			"type mismatch",
			rows.Row{rows.NewInt64(1), rows.NewInt64(2), rows.NewFloat64(0.5)},
			false,
		},
		{
			"arity mismatch",
			rows.Row{rows.NewInt64(1)},
			false,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			batch := rows.NewBatch(s)
			batch.Append(c.row)
			err := batch.Validate()
			if c.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestBatchTake(t *testing.T) {
	batch := rows.NewBatch(testSchema())
	for i := 0; i < 5; i++ {
		batch.Append(rows.Row{rows.NewInt64(int64(i)), rows.NewString("x"), rows.NewFloat64(0)})
	}
	taken := batch.Take([]int{4, 0, 2})
	require.Equal(t, 3, taken.Len())
	require.Equal(t, int64(4), taken.Rows[0][0].Int)
	require.Equal(t, int64(0), taken.Rows[1][0].Int)
	require.Equal(t, int64(2), taken.Rows[2][0].Int)
}

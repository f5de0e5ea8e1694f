package matcher_test

import (
	"testing"

	"github.com/stratadb/strata/matcher"
	"github.com/stratadb/strata/rows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetBatch(ids ...int64) *rows.Batch {
	batch := rows.NewBatch(rows.NewSchema(
		rows.Column{Name: "id", Type: rows.TypeInt64},
		rows.Column{Name: "name", Type: rows.TypeString},
	))
	for _, id := range ids {
		batch.Append(rows.Row{rows.NewInt64(id), rows.NewString("x")})
	}
	return batch
}

func key(id int64) rows.Key {
	return rows.EncodeKey(rows.Row{rows.NewInt64(id)}, []int{0})
}

func TestProbe(t *testing.T) {
	table := matcher.NewTable(targetBatch(10, 20, 30), []int{0})
	require.Equal(t, 3, table.Len())

	cases := []struct {
		assertion string
		key       rows.Key
		position  uint32
		matched   bool
	}{
		{"first row", key(10), 0, true},
		{"middle row", key(20), 1, true},
		{"last row", key(30), 2, true},
		{"absent key", key(99), 0, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			position, matched, err := table.Probe(c.key)
			require.NoError(t, err)
			require.Equal(t, c.matched, matched)
			if matched {
				assert.Equal(t, c.position, position)
			}
		})
	}
}

func TestDuplicateTargetKeys(t *testing.T) {
	table := matcher.NewTable(targetBatch(10, 20, 10), []int{0})

	// the duplicate only errors when something probes it
	position, matched, err := table.Probe(key(20))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, uint32(1), position)

	_, _, err = table.Probe(key(10))
	require.ErrorIs(t, err, matcher.MultipleMatchError{})

	var match matcher.MultipleMatchError
	require.ErrorAs(t, err, &match)
	assert.Equal(t, key(10), match.Key)
}

func TestCompositeKey(t *testing.T) {
	batch := rows.NewBatch(rows.NewSchema(
		rows.Column{Name: "a", Type: rows.TypeInt64},
		rows.Column{Name: "b", Type: rows.TypeString},
	))
	batch.Append(
		rows.Row{rows.NewInt64(1), rows.NewString("x")},
		rows.Row{rows.NewInt64(1), rows.NewString("y")},
	)
	table := matcher.NewTable(batch, []int{0, 1})

	probe := rows.EncodeKey(rows.Row{rows.NewInt64(1), rows.NewString("y")}, []int{0, 1})
	position, matched, err := table.Probe(probe)
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, uint32(1), position)
}

func TestEmptyTable(t *testing.T) {
	table := matcher.NewTable(targetBatch(), []int{0})
	require.Zero(t, table.Len())
	_, matched, err := table.Probe(key(1))
	require.NoError(t, err)
	require.False(t, matched)
}

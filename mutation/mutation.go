package mutation

import (
	"fmt"

	"github.com/stratadb/strata/rows"
)

/*
The mutation package folds the row-level outcomes of a mutation into one
table-scoped delta. Matching produces transient per-row intents; intents
against the same block collapse into a single block mutation; finalized
block-level operations fold into a Delta, in which every block appears at
most once. The Log carries the delta across commit retries so a conflicting
commit can be rebased onto a newer snapshot without re-reading source data.
*/

////////////////////////////////////////////////////////////////////////////////

// IntentKind enumerates the row-level mutation decisions.
type IntentKind uint8

const (
	IntentInsert IntentKind = iota + 1
	IntentDelete
	IntentReplace
)

func (k IntentKind) String() string {
	switch k {
	case IntentInsert:
		return "insert"
	case IntentDelete:
		return "delete"
	case IntentReplace:
		return "replace"
	default:
		return fmt.Sprintf("unknown (%d)", k)
	}
}

// Intent is one row-level mutation decision. Intents are transient: they
// exist between matching and accumulation and are never persisted.
type Intent struct {
	Kind     IntentKind
	Block    string
	Position uint32
	Key      rows.Key
	Row      rows.Row
}

// InsertIntent returns an intent inserting row into the table.
func InsertIntent(row rows.Row) Intent {
	return Intent{Kind: IntentInsert, Row: row}
}

// DeleteIntent returns an intent deleting the row at position in block.
func DeleteIntent(block string, position uint32) Intent {
	return Intent{Kind: IntentDelete, Block: block, Position: position}
}

// ReplaceIntent returns an intent replacing the row at position in block.
// The conflict key that matched the row is carried for error reporting.
func ReplaceIntent(block string, position uint32, key rows.Key, row rows.Row) Intent {
	return Intent{Kind: IntentReplace, Block: block, Position: position, Key: key, Row: row}
}

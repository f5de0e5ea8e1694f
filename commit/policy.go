package commit

import "fmt"

// OverlapPolicy decides the fate of a mutation whose touched blocks were
// rewritten by a concurrent commit, making a rebase impossible.
type OverlapPolicy uint8

const (
	// OverlapAbort fails the mutation. This is the right policy for
	// mutations carrying user data.
	OverlapAbort OverlapPolicy = iota + 1
	// OverlapDrop forfeits the mutation and reports the winning version as
	// the outcome. Maintenance work such as compaction uses this: the
	// winner already restructured the blocks it was about to rewrite.
	OverlapDrop
)

func (p OverlapPolicy) String() string {
	switch p {
	case OverlapAbort:
		return "abort"
	case OverlapDrop:
		return "drop"
	default:
		return fmt.Sprintf("unknown (%d)", p)
	}
}

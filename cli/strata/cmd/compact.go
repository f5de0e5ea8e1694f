package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	compactTable string
	compactKey   []string
)

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Merge a table's undersized blocks into full ones",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, done := openEngine()
		defer done()
		before, err := e.Head(ctx, compactTable)
		if err != nil {
			bailf("error resolving table: %s", err)
		}
		result, err := e.Compact(ctx, compactTable, compactKey)
		if err != nil {
			bailf("error compacting %s: %s", compactTable, err)
		}
		switch {
		case result.Dropped:
			fmt.Printf("%s advanced to version %d during compaction, no change made\n",
				compactTable, result.Entry.Version)
		case result.Entry.Version == before.Version:
			fmt.Printf("%s has nothing to compact at version %d\n",
				compactTable, before.Version)
		default:
			fmt.Printf("compacted %s: version %d, %d rows in %d blocks\n", compactTable,
				result.Entry.Version, result.Snapshot.Summary.RowCount,
				result.Snapshot.Summary.BlockCount)
		}
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)

	compactCmd.PersistentFlags().StringVarP(&compactTable, "table", "t", "", "Table name")
	compactCmd.MarkPersistentFlagRequired("table")
	compactCmd.PersistentFlags().StringSliceVarP(&compactKey, "key", "k", nil, "Key columns for the rewritten block filters")
}

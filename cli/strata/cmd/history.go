package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	cutil "github.com/stratadb/strata/cli/strata/util"
	"github.com/stratadb/strata/util"
)

var historyTable string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the version history of a table",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, done := openEngine()
		defer done()
		entries, err := e.History(ctx, historyTable)
		if err != nil {
			bailf("error reading history: %s", err)
		}
		headers := []string{"Version", "Snapshot", "Committed", "Rows", "Blocks", "Size"}
		data := [][]string{}
		for _, entry := range entries {
			snapshot, err := e.Snapshot(ctx, entry)
			if err != nil {
				bailf("error reading snapshot %s: %s", entry.SnapshotID, err)
			}
			data = append(data, []string{
				fmt.Sprintf("%d", entry.Version),
				entry.SnapshotID.String()[:8],
				entry.Timestamp.Format(time.RFC3339),
				fmt.Sprintf("%d", snapshot.Summary.RowCount),
				fmt.Sprintf("%d", snapshot.Summary.BlockCount),
				util.HumanBytes(snapshot.Summary.ByteSize),
			})
		}
		cutil.PrintTable(os.Stdout, headers, data)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVarP(&historyTable, "table", "t", "", "Table name")
	historyCmd.MarkPersistentFlagRequired("table")
}

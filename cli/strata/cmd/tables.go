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

// tablesCmd represents the tables command
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables and their current versions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, done := openEngine()
		defer done()
		entries, err := e.Tables(ctx)
		if err != nil {
			bailf("error listing tables: %s", err)
		}
		headers := []string{"Table", "Version", "Snapshot", "Updated", "Rows", "Blocks", "Size"}
		data := [][]string{}
		for _, entry := range entries {
			snapshot, err := e.Snapshot(ctx, entry)
			if err != nil {
				bailf("error reading snapshot for %s: %s", entry.Table, err)
			}
			data = append(data, []string{
				entry.Table,
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
	rootCmd.AddCommand(tablesCmd)
}

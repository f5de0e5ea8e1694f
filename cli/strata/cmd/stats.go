package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	cutil "github.com/stratadb/strata/cli/strata/util"
	"github.com/stratadb/strata/catalog"
)

var (
	statsTable   string
	statsVersion uint64
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print column statistics for a table version",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, done := openEngine()
		defer done()
		var entry catalog.Entry
		var err error
		if statsVersion > 0 {
			entry, err = e.Version(ctx, statsTable, statsVersion)
		} else {
			entry, err = e.Head(ctx, statsTable)
		}
		if err != nil {
			bailf("error resolving version: %s", err)
		}
		snapshot, err := e.Snapshot(ctx, entry)
		if err != nil {
			bailf("error reading snapshot: %s", err)
		}
		headers := []string{"Column", "Type", "Min", "Max", "Nulls"}
		data := [][]string{}
		for _, col := range snapshot.Schema.Columns {
			cs, ok := snapshot.Summary.ColumnStats[col.Name]
			if !ok {
				continue
			}
			data = append(data, []string{
				col.Name,
				col.Type.String(),
				cs.Min.String(),
				cs.Max.String(),
				fmt.Sprintf("%d", cs.NullCount),
			})
		}
		cutil.PrintTable(os.Stdout, headers, data)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.PersistentFlags().StringVarP(&statsTable, "table", "t", "", "Table name")
	statsCmd.MarkPersistentFlagRequired("table")
	statsCmd.PersistentFlags().Uint64VarP(&statsVersion, "version", "v", 0, "Version to inspect (default: head)")
}

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/util"
)

var (
	inspectTable   string
	inspectVersion uint64
)

var colors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgBlue),
	color.New(color.FgYellow),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
}

func getColor(n int) *color.Color {
	return colors[n%len(colors)]
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the snapshot, segment, and block layout of a table version",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, done := openEngine()
		defer done()
		var entry catalog.Entry
		var err error
		if inspectVersion > 0 {
			entry, err = e.Version(ctx, inspectTable, inspectVersion)
		} else {
			entry, err = e.Head(ctx, inspectTable)
		}
		if err != nil {
			bailf("error resolving version: %s", err)
		}
		snapshot, segments, err := e.Describe(ctx, entry)
		if err != nil {
			bailf("error reading snapshot: %s", err)
		}
		fmt.Printf("snapshot %s version %d\n", snapshot.ID, entry.Version)
		if snapshot.Previous != nil {
			fmt.Printf("previous %s\n", snapshot.Previous.ID)
		}
		fmt.Printf("committed %s\n", snapshot.Timestamp.Format(time.RFC3339Nano))
		cols := make([]string, 0, len(snapshot.Schema.Columns))
		for _, col := range snapshot.Schema.Columns {
			name := col.Name + " " + col.Type.String()
			if col.Nullable {
				name += "?"
			}
			cols = append(cols, name)
		}
		fmt.Printf("schema %s\n", strings.Join(cols, ", "))
		fmt.Printf("%d segments, %d blocks, %d rows, %s\n",
			len(segments), snapshot.Summary.BlockCount, snapshot.Summary.RowCount,
			util.HumanBytes(snapshot.Summary.ByteSize))
		for i, segment := range segments {
			c := getColor(i)
			c.Printf("segment %d: %s (%d blocks, %d rows, %s)\n",
				i, snapshot.Segments[i].Key, len(segment.Blocks),
				segment.Summary.RowCount, util.HumanBytes(segment.Summary.ByteSize))
			for j, block := range segment.Blocks {
				line := fmt.Sprintf("  block %d: %s %d rows %s", j, block.Location.Key,
					block.RowCount, util.HumanBytes(block.ByteSize))
				if block.KeyFilter != nil {
					line += fmt.Sprintf(" filter %s", util.HumanBytes(block.FilterSize))
				}
				c.Println(line)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.PersistentFlags().StringVarP(&inspectTable, "table", "t", "", "Table name")
	inspectCmd.MarkPersistentFlagRequired("table")
	inspectCmd.PersistentFlags().Uint64VarP(&inspectVersion, "version", "v", 0, "Version to inspect (default: head)")
}

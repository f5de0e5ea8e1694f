package util

import (
	"fmt"
	"io"
	"strings"
)

// PrintTable renders headers and rows as a padded grid:
//
//	| Table  | Version | Rows |
//	|--------|---------|------|
//	| events | 14      | 107  |
func PrintTable(w io.Writer, headers []string, data [][]string) {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range data {
		for i, col := range row {
			if len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}
	printRow := func(cells []string) {
		fmt.Fprint(w, "|")
		for i, cell := range cells {
			fmt.Fprintf(w, " %-*s |", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
	printRow(headers)
	fmt.Fprint(w, "|")
	for _, width := range widths {
		fmt.Fprint(w, strings.Repeat("-", width+2), "|")
	}
	fmt.Fprintln(w)
	for _, row := range data {
		printRow(row)
	}
}

// Package table prints pterm tables in the CLI's house style.
package table

import "github.com/pterm/pterm"

// PrintTableNoPad renders rows with no column padding beyond a single space.
// The first row is treated as a header when hasHeader is set.
func PrintTableNoPad(rows pterm.TableData, hasHeader bool) {
	t := pterm.DefaultTable.WithData(rows).WithSeparator(" ")
	if hasHeader {
		t = t.WithHasHeader()
	}
	_ = t.Render()
}

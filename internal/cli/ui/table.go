package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// RenderTable prints an aligned table with a cyan header row and a gray
// separator. Cells beyond the header width are dropped.
func RenderTable(w io.Writer, headers []string, rows [][]string, noColor bool) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	for i, header := range headers {
		bold.Fprint(w, padRight(header, widths[i]))
		if i < len(headers)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for i, width := range widths {
		gray.Fprint(w, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprint(w, padRight(cell, widths[i]))
				if i < len(row)-1 {
					fmt.Fprint(w, "  ")
				}
			}
		}
		fmt.Fprintln(w)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

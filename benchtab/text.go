// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var textHeader = []string{"name", "n", "min", "median", "max", "total alloc", "peak heap"}

// FormatText lays out t as an aligned plain-text table and writes it
// to w. The first column is left-aligned; all others right-aligned.
func FormatText(w io.Writer, t *Table) error {
	grid := [][]string{textHeader}
	for _, r := range t.Rows {
		grid = append(grid, []string{
			r.Name,
			fmt.Sprint(r.N),
			FormatTime(r.TimeMin),
			FormatTime(r.TimeMedian),
			FormatTime(r.TimeMax),
			FormatBytes(r.TotalAlloc),
			FormatBytes(r.PeakHeap),
		})
	}
	if d := t.Delta; d != nil {
		grid = append(grid, []string{
			"delta",
			"",
			"",
			fmt.Sprintf("%s (%s)", d.Time, d.TimeP),
			"",
			fmt.Sprintf("%s (%s)", d.Alloc, d.AllocP),
			"",
		})
	}

	// Column widths over all cells.
	widths := make([]int, len(textHeader))
	for _, row := range grid {
		for c, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[c] {
				widths[c] = n
			}
		}
	}

	var b strings.Builder
	for _, row := range grid {
		b.Reset()
		for c, cell := range row {
			if c > 0 {
				b.WriteString("  ")
			}
			pad := widths[c] - utf8.RuneCountInString(cell)
			if c == 0 {
				b.WriteString(cell)
				if c < lastNonEmpty(row) {
					b.WriteString(strings.Repeat(" ", pad))
				}
			} else {
				b.WriteString(strings.Repeat(" ", pad))
				b.WriteString(cell)
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func lastNonEmpty(row []string) int {
	for c := len(row) - 1; c >= 0; c-- {
		if row[c] != "" {
			return c
		}
	}
	return 0
}

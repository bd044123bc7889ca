// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"encoding/csv"
	"fmt"
	"io"
)

// FormatCSV writes t in CSV form with unscaled values, suitable for
// consumption by other programs. Times are in nanoseconds and memory
// in bytes.
func FormatCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"name", "n", "min-ns", "median-ns", "max-ns", "total-alloc-bytes", "peak-heap-bytes"})
	for _, r := range t.Rows {
		cw.Write([]string{
			r.Name,
			fmt.Sprint(r.N),
			fmt.Sprint(r.TimeMin.Nanoseconds()),
			fmt.Sprint(r.TimeMedian.Nanoseconds()),
			fmt.Sprint(r.TimeMax.Nanoseconds()),
			fmt.Sprint(r.TotalAlloc),
			fmt.Sprint(r.PeakHeap),
		})
	}
	if d := t.Delta; d != nil {
		cw.Write([]string{"delta", "", "", d.Time, "", d.Alloc, ""})
	}
	cw.Flush()
	return cw.Error()
}

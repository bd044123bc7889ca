// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"io"

	"github.com/google/safehtml/template"
)

var htmlTemplate = template.Must(template.New("benchtab").ParseFromTrustedTemplate(template.MakeTrustedTemplate(`
<table class='benchtab'>
<thead>
<tr><th>name<th>n<th>min<th>median<th>max<th>total alloc<th>peak heap
</thead>
<tbody>
{{range .Rows -}}
<tr><td>{{.Name}}<td>{{.N}}<td>{{.TimeMin}}<td>{{.TimeMedian}}<td>{{.TimeMax}}<td>{{.TotalAlloc}}<td>{{.PeakHeap}}
{{end -}}
{{with .Delta -}}
<tr class='delta'><td>delta<td><td><td>{{.Time}} ({{.TimeP}})<td><td>{{.Alloc}} ({{.AllocP}})<td>
{{end -}}
</tbody>
</table>
`)))

type htmlRow struct {
	Name                         string
	N                            int
	TimeMin, TimeMedian, TimeMax string
	TotalAlloc, PeakHeap         string
}

type htmlTable struct {
	Rows  []htmlRow
	Delta *Delta
}

// FormatHTML writes t as an HTML table fragment.
func FormatHTML(w io.Writer, t *Table) error {
	view := htmlTable{Delta: t.Delta}
	for _, r := range t.Rows {
		view.Rows = append(view.Rows, htmlRow{
			Name:       r.Name,
			N:          r.N,
			TimeMin:    FormatTime(r.TimeMin),
			TimeMedian: FormatTime(r.TimeMedian),
			TimeMax:    FormatTime(r.TimeMax),
			TotalAlloc: FormatBytes(r.TotalAlloc),
			PeakHeap:   FormatBytes(r.PeakHeap),
		})
	}
	return htmlTemplate.Execute(w, view)
}

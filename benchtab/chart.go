// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cellbench/cellbench/benchrun"
)

// WriteChart renders an interactive HTML bar chart of the per-run
// wall times of the given results, one series per result, so the
// sample distributions can be inspected run by run.
func WriteChart(w io.Writer, results ...*benchrun.Result) error {
	runs := 0
	for _, r := range results {
		if r.Iters() > runs {
			runs = r.Iters()
		}
	}
	xs := make([]string, runs)
	for i := range xs {
		xs[i] = fmt.Sprintf("run %d", i+1)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Filter query cost",
			Subtitle: "per-run wall time (ms)",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs)
	for _, r := range results {
		data := make([]opts.BarData, r.Iters())
		for i, d := range r.Times {
			data[i] = opts.BarData{Value: float64(d.Microseconds()) / 1e3}
		}
		bar.AddSeries(r.Name, data)
	}
	return bar.Render(w)
}

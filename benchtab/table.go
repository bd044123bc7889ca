// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchtab renders benchrun results as comparison tables:
// plain text, CSV, HTML, and an interactive chart. Each table row
// summarizes one measured expression with order statistics over its
// per-run samples.
package benchtab

import (
	"time"

	"github.com/cellbench/cellbench/benchrun"
)

// A Row is one measured expression summarized for display.
type Row struct {
	Name string
	N    int // number of measured runs

	TimeMin, TimeMedian, TimeMax time.Duration

	TotalAlloc, PeakHeap uint64
}

// A Delta compares the second row of a table against the first.
type Delta struct {
	// Time and Alloc hold the percent change of the medians, or
	// "~" if the samples are statistically indistinguishable.
	Time, Alloc string

	// TimeP and AllocP describe the underlying significance tests.
	TimeP, AllocP benchrun.Comparison
}

// A Table is a set of rows, optionally with a trailing delta line
// comparing the second row against the first.
type Table struct {
	Rows  []Row
	Delta *Delta
}

// NewRow summarizes one result.
func NewRow(r *benchrun.Result) Row {
	ts := r.TimeSample()
	return Row{
		Name:       r.Name,
		N:          r.Iters(),
		TimeMin:    secs(ts.Min()),
		TimeMedian: secs(ts.Median()),
		TimeMax:    secs(ts.Max()),
		TotalAlloc: r.TotalAlloc(),
		PeakHeap:   r.PeakHeap,
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Build assembles a table with one row per result, in order.
func Build(results ...*benchrun.Result) *Table {
	t := &Table{Rows: make([]Row, len(results))}
	for i, r := range results {
		t.Rows[i] = NewRow(r)
	}
	return t
}

// BuildComparison assembles a two-row table with a delta line
// comparing new against old.
func BuildComparison(old, new *benchrun.Result) *Table {
	t := Build(old, new)

	oldT, newT := old.TimeSample(), new.TimeSample()
	oldA, newA := old.AllocSample(), new.AllocSample()
	timeP := benchrun.Compare(oldT, newT)
	allocP := benchrun.Compare(oldA, newA)
	t.Delta = &Delta{
		Time:   timeP.FormatDelta(oldT.Median(), newT.Median()),
		Alloc:  allocP.FormatDelta(oldA.Median(), newA.Median()),
		TimeP:  timeP,
		AllocP: allocP,
	}
	return t
}

// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrun

import "time"

// A Result holds the measurements from one harness invocation: the
// per-run samples in run order, plus the peak heap observed and the
// wrapped operation's final return value. A Result is immutable once
// returned by Run.
type Result struct {
	Name string

	// Times holds the measured wall time of each run, in run order.
	Times []time.Duration

	// Allocs holds the bytes allocated during each run, in run
	// order.
	Allocs []uint64

	// PeakHeap is the largest live heap observed after any run.
	PeakHeap uint64

	// Value is the operation's return value from the final run.
	Value any
}

// Iters returns the number of measured runs.
func (r *Result) Iters() int { return len(r.Times) }

// TotalAlloc returns the bytes allocated across all runs.
func (r *Result) TotalAlloc() uint64 {
	var sum uint64
	for _, a := range r.Allocs {
		sum += a
	}
	return sum
}

// TotalTime returns the measured wall time across all runs.
func (r *Result) TotalTime() time.Duration {
	var sum time.Duration
	for _, d := range r.Times {
		sum += d
	}
	return sum
}

// TimeSample returns the per-run durations as a Sample in seconds.
func (r *Result) TimeSample() *Sample {
	xs := make([]float64, len(r.Times))
	for i, d := range r.Times {
		xs[i] = d.Seconds()
	}
	return NewSample(xs, "sec/op")
}

// AllocSample returns the per-run allocation counts as a Sample in
// bytes.
func (r *Result) AllocSample() *Sample {
	xs := make([]float64, len(r.Allocs))
	for i, a := range r.Allocs {
		xs[i] = float64(a)
	}
	return NewSample(xs, "B/op")
}

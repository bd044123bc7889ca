// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchrun measures the wall-clock time and memory cost of
// repeatedly executing an operation, keeping every per-run sample so
// consumers can compute order statistics rather than just a mean.
//
// The harness itself allocates only the result record it returns;
// everything it keeps per iteration is preallocated before the first
// measured run, so measurements are not biased by harness overhead.
package benchrun

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// An Op is a zero-argument operation under measurement. The harness
// does not assume the operation is pure; the caller is responsible
// for ensuring that repeated invocation is safe, e.g. a read-only
// filter query.
type Op func() (any, error)

// A Policy controls how often an operation is repeated.
//
// The zero Policy runs the operation exactly once. If Iterations is
// set it takes precedence and gives an exact repeat count. Otherwise
// the operation repeats until MinTime of total measured wall time has
// elapsed and at least MinIterations runs have completed. An in-flight
// run is never interrupted; MinTime only stops further repetition.
type Policy struct {
	Iterations    int
	MinTime       time.Duration
	MinIterations int
}

// A MeasurementError reports that the operation under measurement
// failed. The harness never records a zero-cost sample for a failed
// run; it stops and reports the underlying fault.
type MeasurementError struct {
	Name string // benchmark name
	Iter int    // zero-based iteration that failed
	Err  error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("benchmark %s: iteration %d: %v", e.Name, e.Iter, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// Run executes op under the given policy, measuring monotonic elapsed
// time and bytes allocated immediately around each invocation. It
// returns a Result holding every per-run sample, or a
// *MeasurementError if any invocation of op returns an error.
func Run(name string, op Op, pol Policy) (*Result, error) {
	if op == nil {
		return nil, errors.New("benchrun: nil operation")
	}
	n := pol.Iterations
	if n <= 0 {
		n = pol.MinIterations
	}
	if n <= 0 {
		n = 1
	}
	res := &Result{
		Name:   name,
		Times:  make([]time.Duration, 0, n),
		Allocs: make([]uint64, 0, n),
	}

	// Settle the heap once so the first sample isn't charged for
	// garbage left over from setup.
	runtime.GC()

	var ms runtime.MemStats
	var total time.Duration
	for i := 0; ; i++ {
		runtime.ReadMemStats(&ms)
		allocStart := ms.TotalAlloc

		start := time.Now()
		v, err := op()
		elapsed := time.Since(start)

		if err != nil {
			return nil, &MeasurementError{Name: name, Iter: i, Err: err}
		}

		runtime.ReadMemStats(&ms)
		res.Times = append(res.Times, elapsed)
		res.Allocs = append(res.Allocs, ms.TotalAlloc-allocStart)
		if ms.HeapAlloc > res.PeakHeap {
			res.PeakHeap = ms.HeapAlloc
		}
		res.Value = v
		total += elapsed

		if done(pol, i+1, total) {
			break
		}
	}
	return res, nil
}

// done reports whether the stopping policy is satisfied after n
// completed runs taking total measured time.
func done(pol Policy, n int, total time.Duration) bool {
	if pol.Iterations > 0 {
		return n >= pol.Iterations
	}
	if pol.MinTime <= 0 && pol.MinIterations <= 0 {
		return n >= 1
	}
	min := pol.MinIterations
	if min < 1 {
		min = 1
	}
	return n >= min && total >= pol.MinTime
}

// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"math"

	"github.com/cellbench/cellbench/scdata"
)

// DefaultTargetSum is the per-cell count total that NormalizeTotal
// scales to when none is given.
const DefaultTargetSum = 1e4

// LogNormalize library-size-normalizes the raw counts to targetSum
// per cell and applies log1p, attaching the result as the dataset's
// normalized layer X. The sparsity structure of the counts is
// preserved. If targetSum is 0, DefaultTargetSum is used.
func LogNormalize(ds *scdata.Dataset, targetSum float64) (*scdata.Dataset, error) {
	out, err := NormalizeTotal(ds, targetSum)
	if err != nil {
		return nil, err
	}
	return Log1p(out)
}

// NormalizeTotal scales each cell's counts so they sum to targetSum,
// attaching the result as the normalized layer X.
func NormalizeTotal(ds *scdata.Dataset, targetSum float64) (*scdata.Dataset, error) {
	if ds.Counts == nil {
		return nil, &StageError{"normalize", errors.New("dataset has no counts")}
	}
	if targetSum == 0 {
		targetSum = DefaultTargetSum
	}
	factors := make([]float64, ds.NumObs())
	for i, o := range ds.Obs {
		if o.NCounts <= 0 {
			return nil, &StageError{"normalize", errors.New("observation with zero total count")}
		}
		factors[i] = targetSum / o.NCounts
	}
	out := *ds
	out.X = ds.Counts.Map(func(row int, v float64) float64 {
		return v * factors[row]
	})
	return &out, nil
}

// Log1p replaces every value of the normalized layer with log(1+x).
func Log1p(ds *scdata.Dataset) (*scdata.Dataset, error) {
	if ds.X == nil {
		return nil, &StageError{"normalize", errors.New("dataset has no normalized layer")}
	}
	out := *ds
	out.X = ds.X.Map(func(_ int, v float64) float64 {
		return math.Log1p(v)
	})
	return &out, nil
}

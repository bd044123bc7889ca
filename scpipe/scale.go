// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cellbench/cellbench/scdata"
)

// DefaultMaxScaled is the clipping bound applied after
// standardization. Extreme cells would otherwise dominate the
// principal components.
const DefaultMaxScaled = 10

// ScaleUnitVariance standardizes the normalized expression of the
// selected variable genes to zero mean and unit variance per gene,
// clipping values to ±maxValue, and attaches the dense result as
// ds.Scaled. If maxValue is 0, DefaultMaxScaled is used.
func ScaleUnitVariance(ds *scdata.Dataset, maxValue float64) (*scdata.Dataset, error) {
	if ds.X == nil {
		return nil, &StageError{"scale", errors.New("dataset has no normalized layer; normalize first")}
	}
	if len(ds.HVG) == 0 {
		return nil, &StageError{"scale", errors.New("no variable genes selected")}
	}
	if maxValue == 0 {
		maxValue = DefaultMaxScaled
	}

	n, k := ds.NumObs(), len(ds.HVG)
	sub := ds.X.SelectCols(ds.HVG)
	mean, variance := sub.ColStats()
	std := make([]float64, k)
	for j, v := range variance {
		std[j] = math.Sqrt(v)
	}

	scaled := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		row := scaled.RawRowView(i)
		for j := 0; j < k; j++ {
			row[j] = -mean[j] // implicit zero entries
		}
		cols, vals := sub.Row(i)
		for t, j := range cols {
			row[j] = vals[t] - mean[j]
		}
		for j := 0; j < k; j++ {
			if std[j] > 0 {
				row[j] /= std[j]
			} else {
				row[j] = 0
			}
			if row[j] > maxValue {
				row[j] = maxValue
			} else if row[j] < -maxValue {
				row[j] = -maxValue
			}
		}
	}

	out := *ds
	out.Scaled = scaled
	return &out, nil
}

// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cellbench/cellbench/scdata"
)

// PCA computes the first nComps principal components of the scaled
// expression block and attaches the per-cell scores as ds.Embedding,
// with the per-component explained variance in ds.PCVariance.
func PCA(ds *scdata.Dataset, nComps int) (*scdata.Dataset, error) {
	if ds.Scaled == nil {
		return nil, &StageError{"pca", errors.New("dataset has no scaled layer; scale first")}
	}
	n, k := ds.Scaled.Dims()
	max := n
	if k < max {
		max = k
	}
	if nComps <= 0 || nComps > max {
		return nil, &StageError{"pca", fmt.Errorf("cannot compute %d components from a %d×%d matrix", nComps, n, k)}
	}

	// The scaled block already has zero-mean columns, so the
	// principal axes are the right singular vectors.
	var svd mat.SVD
	if ok := svd.Factorize(ds.Scaled, mat.SVDThin); !ok {
		return nil, &StageError{"pca", errors.New("SVD failed to converge")}
	}
	var u mat.Dense
	svd.UTo(&u)
	sigma := svd.Values(nil)

	scores := mat.NewDense(n, nComps, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < nComps; c++ {
			scores.Set(i, c, u.At(i, c)*sigma[c])
		}
	}
	variance := make([]float64, nComps)
	if n > 1 {
		for c := 0; c < nComps; c++ {
			variance[c] = sigma[c] * sigma[c] / float64(n-1)
		}
	}

	out := *ds
	out.Embedding = scores
	out.PCVariance = variance
	return &out, nil
}

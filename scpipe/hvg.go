// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/cellbench/cellbench/scdata"
)

// HVGMethod names a variable-gene ranking method.
type HVGMethod string

const (
	// Dispersion ranks genes by their mean-binned normalized
	// dispersion (variance/mean standardized within expression
	// bins).
	Dispersion HVGMethod = "dispersion"
)

// meanBins is the number of expression bins used to standardize
// dispersions, so lowly and highly expressed genes are ranked on a
// comparable scale.
const meanBins = 20

// SelectVariableGenes ranks genes by variability of their normalized
// expression and flags the top n as variable, attaching the ranked
// index list as ds.HVG and filling Mean/Dispersion/Variable on Var.
func SelectVariableGenes(ds *scdata.Dataset, method HVGMethod, n int) (*scdata.Dataset, error) {
	if ds.X == nil {
		return nil, &StageError{"hvg", errors.New("dataset has no normalized layer; normalize first")}
	}
	if method != Dispersion {
		return nil, &StageError{"hvg", fmt.Errorf("unknown method %q", method)}
	}
	if n <= 0 || n > ds.NumVar() {
		return nil, &StageError{"hvg", fmt.Errorf("cannot select %d of %d genes", n, ds.NumVar())}
	}

	mean, variance := ds.X.ColStats()
	disp := make([]float64, len(mean))
	for j := range mean {
		if mean[j] > 0 {
			disp[j] = variance[j] / mean[j]
		}
	}
	norm := normalizeDispersion(mean, disp)

	rank := make([]int, len(norm))
	for j := range rank {
		rank[j] = j
	}
	sort.SliceStable(rank, func(a, b int) bool { return norm[rank[a]] > norm[rank[b]] })

	out := *ds
	out.Var = append([]scdata.Gene(nil), ds.Var...)
	out.HVG = make([]int, n)
	for j := range out.Var {
		out.Var[j].Mean = mean[j]
		out.Var[j].Dispersion = norm[j]
		out.Var[j].Variable = false
	}
	for r := 0; r < n; r++ {
		g := rank[r]
		out.HVG[r] = g
		out.Var[g].Variable = true
	}
	return &out, nil
}

// normalizeDispersion z-scores each gene's dispersion within its mean
// expression bin. Bin edges are mean quantiles, so every bin holds a
// comparable number of genes.
func normalizeDispersion(mean, disp []float64) []float64 {
	ms := stats.Sample{Xs: append([]float64(nil), mean...)}
	sort.Float64s(ms.Xs)
	ms.Sorted = true

	edges := make([]float64, meanBins-1)
	for b := range edges {
		edges[b] = ms.Quantile(float64(b+1) / meanBins)
	}
	binOf := func(m float64) int {
		return sort.SearchFloat64s(edges, m)
	}

	binVals := make([][]float64, meanBins)
	for j := range mean {
		b := binOf(mean[j])
		binVals[b] = append(binVals[b], disp[j])
	}
	binMean := make([]float64, meanBins)
	binStd := make([]float64, meanBins)
	for b, vals := range binVals {
		if len(vals) == 0 {
			continue
		}
		binMean[b] = stats.Mean(vals)
		var ss float64
		for _, v := range vals {
			d := v - binMean[b]
			ss += d * d
		}
		if len(vals) > 1 {
			binStd[b] = math.Sqrt(ss / float64(len(vals)-1))
		}
	}

	norm := make([]float64, len(disp))
	for j := range disp {
		b := binOf(mean[j])
		if binStd[b] > 0 {
			norm[j] = (disp[j] - binMean[b]) / binStd[b]
		}
	}
	return norm
}

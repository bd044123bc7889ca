// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scdata

import "gonum.org/v1/gonum/mat"

// A FilterPredicate selects observations by their annotations.
type FilterPredicate func(o Obs) bool

// CountsAbove returns a predicate selecting observations whose total
// count strictly exceeds min.
func CountsAbove(min float64) FilterPredicate {
	return func(o Obs) bool { return o.NCounts > min }
}

// FeaturesAtLeast returns a predicate selecting observations with at
// least min detected features.
func FeaturesAtLeast(min int) FilterPredicate {
	return func(o Obs) bool { return o.NFeatures >= min }
}

// Subset returns a new Dataset containing only the observations for
// which pred is true, in their original order. Every annotation
// attached to d (layers, variable genes, embedding, neighbor graph,
// cluster labels) is carried over, sliced to the selected rows.
//
// Subset never modifies d. Repeated calls with the same predicate
// return datasets with identical contents.
func (d *Dataset) Subset(pred FilterPredicate) *Dataset {
	idx := make([]int, 0, len(d.Obs))
	for i, o := range d.Obs {
		if pred(o) {
			idx = append(idx, i)
		}
	}
	return d.SubsetIndex(idx)
}

// SubsetIndex returns a new Dataset containing the observations given
// by idx, in that order. It never modifies d.
func (d *Dataset) SubsetIndex(idx []int) *Dataset {
	out := &Dataset{
		Obs:       make([]Obs, len(idx)),
		Var:       append([]Gene(nil), d.Var...),
		Counts:    d.Counts.SelectRows(idx),
		NClusters: d.NClusters,
	}
	for new, old := range idx {
		out.Obs[new] = d.Obs[old]
	}
	if d.X != nil {
		out.X = d.X.SelectRows(idx)
	}
	if d.HVG != nil {
		out.HVG = append([]int(nil), d.HVG...)
	}
	if d.Scaled != nil {
		out.Scaled = selectDenseRows(d.Scaled, idx)
	}
	if d.Embedding != nil {
		out.Embedding = selectDenseRows(d.Embedding, idx)
		out.PCVariance = append([]float64(nil), d.PCVariance...)
	}
	if d.Graph != nil {
		out.Graph = d.Graph.SelectNodes(idx)
	}
	if d.Clusters != nil {
		out.Clusters = make([]int, len(idx))
		for new, old := range idx {
			out.Clusters[new] = d.Clusters[old]
		}
	}
	return out
}

func selectDenseRows(m *mat.Dense, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for new, old := range idx {
		out.SetRow(new, m.RawRowView(old))
	}
	return out
}

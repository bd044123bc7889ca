// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scdata provides the annotated expression matrix at the core
// of cellbench: observations (cells) by features (genes), raw counts
// in sparse form, plus the annotations the pipeline stages attach
// (normalized layer, variable-gene ranking, embedding, neighbor
// graph, cluster labels).
//
// A Dataset is owned by a single pipeline. Stages never modify a
// Dataset they receive; they return a new Dataset sharing the
// unchanged parts. Subset likewise returns a new Dataset and leaves
// the receiver untouched, so the same filter query can be run safely
// at any point in the pipeline.
package scdata

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// An Obs holds the per-observation (per-cell) annotations.
type Obs struct {
	Barcode   string
	NCounts   float64 // total raw counts in this cell
	NFeatures int     // genes with nonzero count in this cell
}

// A Gene holds the per-feature annotations. Mean, Dispersion, and
// Variable are zero until variable-gene selection runs.
type Gene struct {
	ID   string
	Name string

	NCells     int     // cells in which this gene has nonzero count
	Mean       float64 // mean normalized expression
	Dispersion float64 // normalized dispersion
	Variable   bool
}

// A Graph is a weighted undirected neighbor graph over observations.
// Adjacency lists are symmetric: if j appears in Adj[i], then i
// appears in Adj[j] with the same weight.
type Graph struct {
	N   int
	Adj [][]Edge
}

// An Edge is one weighted neighbor link.
type Edge struct {
	To     int
	Weight float64
}

// NumEdges returns the number of undirected edges in g.
func (g *Graph) NumEdges() int {
	n := 0
	for _, adj := range g.Adj {
		n += len(adj)
	}
	return n / 2
}

// SelectNodes returns the subgraph of g induced by the nodes in idx,
// renumbered to 0..len(idx)-1 in the given order.
func (g *Graph) SelectNodes(idx []int) *Graph {
	remap := make(map[int]int, len(idx))
	for new, old := range idx {
		remap[old] = new
	}
	out := &Graph{N: len(idx), Adj: make([][]Edge, len(idx))}
	for new, old := range idx {
		for _, e := range g.Adj[old] {
			if to, ok := remap[e.To]; ok {
				out.Adj[new] = append(out.Adj[new], Edge{to, e.Weight})
			}
		}
	}
	return out
}

// A Dataset is an annotated observations×features expression matrix.
type Dataset struct {
	Obs []Obs
	Var []Gene

	// Counts is the raw count matrix, len(Obs)×len(Var).
	Counts *CSR

	// X is the normalized expression matrix, with the same shape
	// and sparsity as Counts. Nil until normalization runs.
	X *CSR

	// HVG lists indices into Var of the selected variable genes in
	// rank order. Nil until variable-gene selection runs.
	HVG []int

	// Scaled is the standardized expression block over the variable
	// genes: len(Obs) rows, len(HVG) columns, column j holding gene
	// HVG[j]. Nil until scaling runs.
	Scaled *mat.Dense

	// Embedding holds the principal-component scores, len(Obs) rows.
	// Nil until PCA runs.
	Embedding  *mat.Dense
	PCVariance []float64

	// Graph is the neighbor graph over observations. Nil until
	// neighbor computation runs.
	Graph *Graph

	// Clusters holds per-observation cluster labels in
	// [0, NClusters). Nil until clustering runs.
	Clusters  []int
	NClusters int
}

// NumObs returns the number of observations (cells).
func (d *Dataset) NumObs() int { return len(d.Obs) }

// NumVar returns the number of features (genes).
func (d *Dataset) NumVar() int { return len(d.Var) }

// Summary returns a human-readable description of the dataset and its
// attached annotations, one annotation inventory line per group.
func (d *Dataset) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset with %d obs × %d var (%d stored counts)\n",
		d.NumObs(), d.NumVar(), d.Counts.NNZ())
	fmt.Fprintf(&b, "    obs: barcode, nCounts, nFeatures")
	if d.Clusters != nil {
		fmt.Fprintf(&b, ", cluster (%d clusters)", d.NClusters)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "    var: id, name, nCells")
	if d.HVG != nil {
		fmt.Fprintf(&b, ", variable (%d selected)", len(d.HVG))
	}
	b.WriteByte('\n')
	var layers []string
	if d.X != nil {
		layers = append(layers, "normalized")
	}
	if d.Scaled != nil {
		layers = append(layers, "scaled")
	}
	if len(layers) > 0 {
		fmt.Fprintf(&b, "    layers: %s\n", strings.Join(layers, ", "))
	}
	if d.Embedding != nil {
		_, c := d.Embedding.Dims()
		fmt.Fprintf(&b, "    obsm: pca (%d components)\n", c)
	}
	if d.Graph != nil {
		fmt.Fprintf(&b, "    obsp: neighbors (%d edges)\n", d.Graph.NumEdges())
	}
	return b.String()
}

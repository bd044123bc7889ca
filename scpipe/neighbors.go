// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cellbench/cellbench/scdata"
)

// DefaultNeighbors is the neighborhood size used when none is given.
const DefaultNeighbors = 20

// snnPrune drops shared-neighbor edges whose Jaccard overlap falls
// below this fraction.
const snnPrune = 1.0 / 15

// Neighbors finds each cell's k nearest neighbors in the first nDims
// dimensions of the embedding and attaches a shared-nearest-neighbor
// graph: cells are linked with the Jaccard overlap of their
// neighborhoods, pruned below a small cutoff. The graph is symmetric
// by construction. If k is 0, DefaultNeighbors is used.
func Neighbors(ds *scdata.Dataset, k, nDims int) (*scdata.Dataset, error) {
	if ds.Embedding == nil {
		return nil, &StageError{"neighbors", errors.New("dataset has no embedding; run PCA first")}
	}
	n, dims := ds.Embedding.Dims()
	if nDims <= 0 || nDims > dims {
		return nil, &StageError{"neighbors", fmt.Errorf("cannot use %d of %d embedding dimensions", nDims, dims)}
	}
	if k == 0 {
		k = DefaultNeighbors
	}
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		return nil, &StageError{"neighbors", fmt.Errorf("not enough observations (%d) for a neighbor graph", n)}
	}

	// Exact kNN by brute force. Neighborhoods include the cell
	// itself, as the reference implementations do, so two linked
	// cells always share at least their own edge.
	hoods := make([][]int, n)
	dist := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		ri := ds.Embedding.RawRowView(i)[:nDims]
		for j := 0; j < n; j++ {
			rj := ds.Embedding.RawRowView(j)[:nDims]
			var d float64
			for t := range ri {
				diff := ri[t] - rj[t]
				d += diff * diff
			}
			dist[j] = d
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
		hood := make([]int, k+1)
		copy(hood, order[:k+1])
		sort.Ints(hood)
		hoods[i] = hood
	}

	out := *ds
	out.Graph = snnGraph(hoods)
	return &out, nil
}

// snnGraph links cells appearing in each other's candidate
// neighborhoods with the Jaccard overlap of those neighborhoods.
func snnGraph(hoods [][]int) *scdata.Graph {
	n := len(hoods)
	g := &scdata.Graph{N: n, Adj: make([][]scdata.Edge, n)}
	for i := 0; i < n; i++ {
		for _, j := range hoods[i] {
			if j <= i {
				continue
			}
			shared := intersectSize(hoods[i], hoods[j])
			w := float64(shared) / float64(len(hoods[i])+len(hoods[j])-shared)
			if w < snnPrune {
				continue
			}
			g.Adj[i] = append(g.Adj[i], scdata.Edge{To: j, Weight: w})
			g.Adj[j] = append(g.Adj[j], scdata.Edge{To: i, Weight: w})
		}
	}
	return g
}

// intersectSize counts common elements of two sorted int slices.
func intersectSize(a, b []int) int {
	var n int
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] < b[0]:
			a = a[1:]
		case a[0] > b[0]:
			b = b[1:]
		default:
			n++
			a, b = a[1:], b[1:]
		}
	}
	return n
}

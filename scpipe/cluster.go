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

// DefaultResolution is the clustering resolution used when none is
// given. Higher resolutions produce more, smaller clusters.
const DefaultResolution = 0.5

// Cluster partitions the neighbor graph into communities by Louvain
// modularity optimization at the given resolution and attaches the
// per-cell labels as ds.Clusters. Labels are assigned in decreasing
// cluster size, so cluster 0 is the largest.
//
// Nodes are visited in index order with deterministic tie-breaking,
// so the result is reproducible for a given graph.
func Cluster(ds *scdata.Dataset, resolution float64) (*scdata.Dataset, error) {
	if ds.Graph == nil {
		return nil, &StageError{"cluster", errors.New("dataset has no neighbor graph; run Neighbors first")}
	}
	if resolution == 0 {
		resolution = DefaultResolution
	}
	if resolution < 0 {
		return nil, &StageError{"cluster", fmt.Errorf("negative resolution %v", resolution)}
	}

	labels := louvain(ds.Graph, resolution)

	out := *ds
	out.Clusters, out.NClusters = relabelBySize(labels)
	return &out, nil
}

// lvGraph is the working graph for Louvain aggregation passes. Self
// holds the intra-community weight accumulated by aggregation; it
// contributes twice to a node's weighted degree, keeping the total
// graph weight invariant across passes.
type lvGraph struct {
	n     int
	adj   [][]scdata.Edge
	self  []float64
	deg   []float64
	total float64
}

func newLvGraph(g *scdata.Graph) *lvGraph {
	lg := &lvGraph{
		n:    g.N,
		adj:  g.Adj,
		self: make([]float64, g.N),
		deg:  make([]float64, g.N),
	}
	for i, adj := range g.Adj {
		for _, e := range adj {
			lg.deg[i] += e.Weight
		}
		lg.total += lg.deg[i]
	}
	return lg
}

func louvain(g *scdata.Graph, resolution float64) []int {
	lg := newLvGraph(g)
	if lg.total == 0 {
		// No edges: every node is its own community.
		labels := make([]int, g.N)
		for i := range labels {
			labels[i] = i
		}
		return labels
	}

	// labels maps original nodes to current-level communities.
	labels := make([]int, g.N)
	for i := range labels {
		labels[i] = i
	}
	for {
		comm, moved := localMove(lg, resolution)
		next, nComm := aggregate(lg, comm)
		for i := range labels {
			labels[i] = comm[labels[i]]
		}
		if !moved || nComm == lg.n {
			break
		}
		lg = next
	}
	return labels
}

// localMove runs the Louvain local moving phase: each node in turn is
// placed in the neighboring community with the largest modularity
// gain, repeating until a full pass makes no move.
func localMove(g *lvGraph, resolution float64) (comm []int, moved bool) {
	comm = make([]int, g.n)
	commTot := make([]float64, g.n)
	for i := range comm {
		comm[i] = i
		commTot[i] = g.deg[i]
	}
	neighW := make(map[int]float64)

	for pass := 0; ; pass++ {
		passMoved := false
		for i := 0; i < g.n; i++ {
			cur := comm[i]
			commTot[cur] -= g.deg[i]

			for k := range neighW {
				delete(neighW, k)
			}
			neighW[cur] = 0
			for _, e := range g.adj[i] {
				if e.To != i {
					neighW[comm[e.To]] += e.Weight
				}
			}

			// Pick the best community; prefer the current one
			// on ties, then the smallest label, so the sweep
			// is deterministic.
			best, bestGain := cur, gain(g, neighW[cur], commTot[cur], g.deg[i], resolution)
			cands := make([]int, 0, len(neighW))
			for c := range neighW {
				cands = append(cands, c)
			}
			sort.Ints(cands)
			for _, c := range cands {
				if c == cur {
					continue
				}
				if gn := gain(g, neighW[c], commTot[c], g.deg[i], resolution); gn > bestGain {
					best, bestGain = c, gn
				}
			}

			comm[i] = best
			commTot[best] += g.deg[i]
			if best != cur {
				passMoved = true
				moved = true
			}
		}
		if !passMoved {
			break
		}
	}
	return comm, moved
}

// gain is the (scaled) modularity change of joining a community with
// total degree tot through edges of weight w.
func gain(g *lvGraph, w, tot, deg, resolution float64) float64 {
	return w - resolution*deg*tot/g.total
}

// aggregate collapses each community into a single node, summing edge
// weights. Intra-community weight becomes the node's self weight.
func aggregate(g *lvGraph, comm []int) (*lvGraph, int) {
	// Compact community IDs in order of first appearance.
	compact := make(map[int]int)
	for _, c := range comm {
		if _, ok := compact[c]; !ok {
			compact[c] = len(compact)
		}
	}
	n := len(compact)

	out := &lvGraph{
		n:     n,
		adj:   make([][]scdata.Edge, n),
		self:  make([]float64, n),
		deg:   make([]float64, n),
		total: g.total,
	}
	type pair struct{ a, b int }
	cross := make(map[pair]float64)
	for i := 0; i < g.n; i++ {
		ci := compact[comm[i]]
		out.self[ci] += g.self[i]
		for _, e := range g.adj[i] {
			cj := compact[comm[e.To]]
			if ci == cj {
				// Each undirected edge is seen from both ends.
				out.self[ci] += e.Weight / 2
			} else if ci < cj {
				cross[pair{ci, cj}] += e.Weight
			}
		}
	}
	for p, w := range cross {
		out.adj[p.a] = append(out.adj[p.a], scdata.Edge{To: p.b, Weight: w})
		out.adj[p.b] = append(out.adj[p.b], scdata.Edge{To: p.a, Weight: w})
	}
	for i := 0; i < n; i++ {
		sort.Slice(out.adj[i], func(a, b int) bool { return out.adj[i][a].To < out.adj[i][b].To })
		out.deg[i] = 2 * out.self[i]
		for _, e := range out.adj[i] {
			out.deg[i] += e.Weight
		}
	}
	// Rewrite comm in compacted form for the caller's label update.
	for i := range comm {
		comm[i] = compact[comm[i]]
	}
	return out, n
}

// relabelBySize renumbers arbitrary labels to 0..k-1 in decreasing
// cluster size, breaking size ties by first appearance.
func relabelBySize(labels []int) ([]int, int) {
	size := make(map[int]int)
	first := make(map[int]int)
	for i, l := range labels {
		if _, ok := first[l]; !ok {
			first[l] = i
		}
		size[l]++
	}
	uniq := make([]int, 0, len(size))
	for l := range size {
		uniq = append(uniq, l)
	}
	sort.Slice(uniq, func(a, b int) bool {
		if size[uniq[a]] != size[uniq[b]] {
			return size[uniq[a]] > size[uniq[b]]
		}
		return first[uniq[a]] < first[uniq[b]]
	})
	remap := make(map[int]int, len(uniq))
	for new, l := range uniq {
		remap[l] = new
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = remap[l]
	}
	return out, len(uniq)
}

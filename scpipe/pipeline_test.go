// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scpipe

import (
	"errors"
	"math"
	"testing"

	"github.com/cellbench/cellbench/scdata"
)

// syntheticDataset builds a deterministic 10-cell × 50-gene count
// matrix with every cell and gene detected.
func syntheticDataset(t *testing.T) *scdata.Dataset {
	t.Helper()
	const nCells, nGenes = 10, 50
	ds := &scdata.Dataset{
		Obs:    make([]scdata.Obs, 0, nCells),
		Var:    make([]scdata.Gene, nGenes),
		Counts: scdata.NewCSR(nCells, nGenes, 0),
	}
	for j := 0; j < nGenes; j++ {
		ds.Var[j] = scdata.Gene{ID: "G", Name: "G"}
	}
	nCellsPerGene := make([]int, nGenes)
	for i := 0; i < nCells; i++ {
		var cols []int
		var vals []float64
		var total float64
		for j := 0; j < nGenes; j++ {
			v := float64((i*7 + j*3) % 5)
			if v == 0 {
				continue
			}
			cols = append(cols, j)
			vals = append(vals, v)
			total += v
			nCellsPerGene[j]++
		}
		ds.Counts.AppendRow(cols, vals)
		ds.Obs = append(ds.Obs, scdata.Obs{
			Barcode:   "cell",
			NCounts:   total,
			NFeatures: len(cols),
		})
	}
	for j := range ds.Var {
		ds.Var[j].NCells = nCellsPerGene[j]
	}
	return ds
}

// runPipeline runs every stage with small test parameters.
func runPipeline(t *testing.T, ds *scdata.Dataset) *scdata.Dataset {
	t.Helper()
	var err error
	if ds, err = LogNormalize(ds, 0); err != nil {
		t.Fatal(err)
	}
	if ds, err = SelectVariableGenes(ds, Dispersion, 20); err != nil {
		t.Fatal(err)
	}
	if ds, err = ScaleUnitVariance(ds, 0); err != nil {
		t.Fatal(err)
	}
	if ds, err = PCA(ds, 5); err != nil {
		t.Fatal(err)
	}
	if ds, err = Neighbors(ds, 0, 5); err != nil {
		t.Fatal(err)
	}
	if ds, err = Cluster(ds, 0.5); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestPipelinePreservesObservations(t *testing.T) {
	ds := syntheticDataset(t)
	want := ds.NumObs()

	out := runPipeline(t, ds)
	if out.NumObs() != want {
		t.Errorf("pipeline changed observation count: %d -> %d", want, out.NumObs())
	}
	// The input dataset must be untouched.
	if ds.X != nil || ds.Embedding != nil || ds.Clusters != nil {
		t.Errorf("pipeline stages mutated their input")
	}
}

func TestLogNormalize(t *testing.T) {
	ds := syntheticDataset(t)
	out, err := LogNormalize(ds, 100)
	if err != nil {
		t.Fatal(err)
	}
	// Undoing the log, every cell should sum to the target.
	for i := 0; i < out.NumObs(); i++ {
		_, vals := out.X.Row(i)
		var sum float64
		for _, v := range vals {
			sum += math.Expm1(v)
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Errorf("cell %d normalized total = %v, want 100", i, sum)
		}
	}
	if ds.X != nil {
		t.Errorf("LogNormalize mutated its input")
	}
}

func TestSelectVariableGenes(t *testing.T) {
	ds := syntheticDataset(t)
	ds, err := LogNormalize(ds, 0)
	if err != nil {
		t.Fatal(err)
	}
	out, err := SelectVariableGenes(ds, Dispersion, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.HVG) != 20 {
		t.Fatalf("selected %d genes, want 20", len(out.HVG))
	}
	nVariable := 0
	for _, g := range out.Var {
		if g.Variable {
			nVariable++
		}
	}
	if nVariable != 20 {
		t.Errorf("%d genes flagged variable, want 20", nVariable)
	}

	// Requesting more genes than exist is a stage error.
	_, err = SelectVariableGenes(ds, Dispersion, 1000)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "hvg" {
		t.Errorf("got %v, want hvg StageError", err)
	}
}

func TestScaleUnitVariance(t *testing.T) {
	ds := syntheticDataset(t)
	ds, err := LogNormalize(ds, 0)
	if err != nil {
		t.Fatal(err)
	}
	ds, err = SelectVariableGenes(ds, Dispersion, 20)
	if err != nil {
		t.Fatal(err)
	}
	out, err := ScaleUnitVariance(ds, 0)
	if err != nil {
		t.Fatal(err)
	}
	r, c := out.Scaled.Dims()
	if r != 10 || c != 20 {
		t.Fatalf("scaled block is %d×%d, want 10×20", r, c)
	}
	// Each scaled column has zero mean.
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += out.Scaled.At(i, j)
		}
		if math.Abs(sum/float64(r)) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", j, sum/float64(r))
		}
	}
}

func TestPCA(t *testing.T) {
	ds := syntheticDataset(t)
	var err error
	if ds, err = LogNormalize(ds, 0); err != nil {
		t.Fatal(err)
	}
	if ds, err = SelectVariableGenes(ds, Dispersion, 20); err != nil {
		t.Fatal(err)
	}
	if ds, err = ScaleUnitVariance(ds, 0); err != nil {
		t.Fatal(err)
	}

	out, err := PCA(ds, 5)
	if err != nil {
		t.Fatal(err)
	}
	r, c := out.Embedding.Dims()
	if r != 10 || c != 5 {
		t.Fatalf("embedding is %d×%d, want 10×5", r, c)
	}
	if len(out.PCVariance) != 5 {
		t.Fatalf("got %d variances, want 5", len(out.PCVariance))
	}
	for i := 1; i < len(out.PCVariance); i++ {
		if out.PCVariance[i] > out.PCVariance[i-1]+1e-12 {
			t.Errorf("explained variance not decreasing: %v", out.PCVariance)
		}
	}

	// More components than observations is a stage error naming pca.
	_, err = PCA(ds, 100)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "pca" {
		t.Errorf("got %v, want pca StageError", err)
	}
}

func TestNeighborsSymmetric(t *testing.T) {
	ds := syntheticDataset(t)
	var err error
	if ds, err = LogNormalize(ds, 0); err != nil {
		t.Fatal(err)
	}
	if ds, err = SelectVariableGenes(ds, Dispersion, 20); err != nil {
		t.Fatal(err)
	}
	if ds, err = ScaleUnitVariance(ds, 0); err != nil {
		t.Fatal(err)
	}
	if ds, err = PCA(ds, 5); err != nil {
		t.Fatal(err)
	}

	out, err := Neighbors(ds, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	g := out.Graph
	for i := range g.Adj {
		for _, e := range g.Adj[i] {
			found := false
			for _, back := range g.Adj[e.To] {
				if back.To == i && back.Weight == e.Weight {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("edge %d->%d has no symmetric partner", i, e.To)
			}
		}
	}

	// Without an embedding the stage must fail.
	_, err = Neighbors(syntheticDataset(t), 3, 5)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "neighbors" {
		t.Errorf("got %v, want neighbors StageError", err)
	}
}

func TestClusterLabels(t *testing.T) {
	out := runPipeline(t, syntheticDataset(t))
	if out.NClusters < 1 {
		t.Fatalf("NClusters = %d, want >= 1", out.NClusters)
	}
	sizes := make([]int, out.NClusters)
	for i, l := range out.Clusters {
		if l < 0 || l >= out.NClusters {
			t.Fatalf("obs %d has label %d outside [0,%d)", i, l, out.NClusters)
		}
		sizes[l]++
	}
	for c := 1; c < len(sizes); c++ {
		if sizes[c] > sizes[0] {
			t.Errorf("cluster 0 is not the largest: sizes %v", sizes)
		}
	}

	// Clustering is deterministic.
	again := runPipeline(t, syntheticDataset(t))
	for i := range out.Clusters {
		if out.Clusters[i] != again.Clusters[i] {
			t.Fatalf("cluster labels differ between identical runs")
		}
	}
}

func TestSubsetStableAcrossAnnotation(t *testing.T) {
	ds := syntheticDataset(t)
	pred := scdata.CountsAbove(90)

	before := ds.Subset(pred).NumObs()
	after := runPipeline(t, ds).Subset(pred).NumObs()
	if before != after {
		t.Errorf("annotation stages changed the filtered rows: %d before, %d after", before, after)
	}
}

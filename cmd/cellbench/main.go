// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cellbench runs a standard single-cell analysis pipeline on a count
// matrix and measures how the cost of a filter query changes as the
// dataset accumulates annotations.
//
// Usage:
//
//	cellbench [options] matrixdir
//
// matrixdir is a directory holding a count matrix in triplet form:
// matrix.mtx, features.tsv (or genes.tsv), and barcodes.tsv, each
// optionally gzip compressed.
//
// Cellbench loads the matrix, then normalizes it, selects highly
// variable genes, scales them, computes a PCA embedding, builds a
// shared-neighbor graph, and clusters it. Before and after the graph
// and cluster annotations exist, it benchmarks the same read-only
// filter query, subsetting to cells whose total count exceeds a
// threshold, and reports both distributions side by side with the
// percent change of the medians and a U-test p-value. If the change
// is not significant at the 0.05 level the delta is shown as ~.
//
// The query never mutates the dataset, so any cost difference comes
// from copying the accumulated annotations into the subset.
//
// By default the report is an aligned text table on standard output.
// The -csv and -html options change the output form, and -bench
// emits the raw per-run samples in Go benchmark format so they can
// be fed to benchstat. The -chart, -plot, and -store options write
// optional artifacts: an interactive per-run chart, an image of the
// embedding colored by cluster, and a SQLite database of the
// samples.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cellbench/cellbench/benchrun"
	"github.com/cellbench/cellbench/benchstore"
	"github.com/cellbench/cellbench/benchtab"
	"github.com/cellbench/cellbench/scdata"
	"github.com/cellbench/cellbench/scpipe"
	"github.com/cellbench/cellbench/scplot"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: cellbench [options] matrixdir\n")
	fmt.Fprintf(os.Stderr, "options:\n")
	flag.PrintDefaults()
	os.Exit(2)
}

var (
	flagMinCells   = flag.Int("mincells", 3, "drop genes detected in fewer than `n` cells")
	flagMinGenes   = flag.Int("mingenes", 200, "drop cells with fewer than `n` detected genes")
	flagGenes      = flag.Int("genes", 2000, "number of variable genes `n` to select")
	flagDims       = flag.Int("dims", 10, "number of principal components `n`")
	flagNeighbors  = flag.Int("neighbors", scpipe.DefaultNeighbors, "number of nearest neighbors `k`")
	flagResolution = flag.Float64("resolution", scpipe.DefaultResolution, "clustering `resolution`")
	flagThreshold  = flag.Float64("threshold", 1000, "filter query keeps cells with total count > `t`")

	flagIterations = flag.Int("iterations", 0, "run the query exactly `n` times (0 to run by time)")
	flagMinTime    = flag.Duration("mintime", time.Second, "keep measuring for at least `d`")
	flagMinIters   = flag.Int("miniters", 5, "measure at least `n` runs when timing")

	flagCSV   = flag.Bool("csv", false, "print the report in CSV form")
	flagHTML  = flag.Bool("html", false, "print the report as an HTML table")
	flagBench = flag.String("bench", "", "write per-run samples in Go benchmark format to `file`")
	flagChart = flag.String("chart", "", "write an interactive per-run chart to HTML `file`")
	flagPlot  = flag.String("plot", "", "write the clustered embedding to image `file`")
	flagStore = flag.String("store", "", "append samples to SQLite database `file`")
)

func main() {
	log.SetPrefix("cellbench: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	pol := benchrun.Policy{
		Iterations:    *flagIterations,
		MinTime:       *flagMinTime,
		MinIterations: *flagMinIters,
	}

	ds, err := scdata.LoadMatrixMarket(flag.Arg(0), scdata.LoadOptions{
		MinCellsPerGene: *flagMinCells,
		MinGenesPerCell: *flagMinGenes,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Print(ds.Summary())

	ds, err = scpipe.LogNormalize(ds, scpipe.DefaultTargetSum)
	if err != nil {
		log.Fatal(err)
	}
	ds, err = scpipe.SelectVariableGenes(ds, scpipe.Dispersion, *flagGenes)
	if err != nil {
		log.Fatal(err)
	}
	ds, err = scpipe.ScaleUnitVariance(ds, scpipe.DefaultMaxScaled)
	if err != nil {
		log.Fatal(err)
	}
	ds, err = scpipe.PCA(ds, *flagDims)
	if err != nil {
		log.Fatal(err)
	}

	query := scdata.CountsAbove(*flagThreshold)
	before, err := measure("subset/before", ds, query, pol)
	if err != nil {
		log.Fatal(err)
	}

	ds, err = scpipe.Neighbors(ds, *flagNeighbors, *flagDims)
	if err != nil {
		log.Fatal(err)
	}
	ds, err = scpipe.Cluster(ds, *flagResolution)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("clustered %d cells into %d communities", ds.NumObs(), ds.NClusters)

	after, err := measure("subset/after", ds, query, pol)
	if err != nil {
		log.Fatal(err)
	}

	tab := benchtab.BuildComparison(before, after)
	switch {
	case *flagCSV:
		err = benchtab.FormatCSV(os.Stdout, tab)
	case *flagHTML:
		err = benchtab.FormatHTML(os.Stdout, tab)
	default:
		err = benchtab.FormatText(os.Stdout, tab)
	}
	if err != nil {
		log.Fatal(err)
	}

	if *flagBench != "" {
		if err := writeBench(*flagBench, ds, before, after); err != nil {
			log.Fatal(err)
		}
	}
	if *flagChart != "" {
		f, err := os.Create(*flagChart)
		if err != nil {
			log.Fatal(err)
		}
		if err := benchtab.WriteChart(f, before, after); err != nil {
			log.Fatal(err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
	}
	if *flagPlot != "" {
		if err := scplot.SaveEmbedding(ds, *flagPlot); err != nil {
			log.Fatal(err)
		}
	}
	if *flagStore != "" {
		if err := store(*flagStore, flag.Arg(0), before, after); err != nil {
			log.Fatal(err)
		}
	}
}

// measure benchmarks the filter query against ds and sanity-checks
// that the dataset was left intact.
func measure(name string, ds *scdata.Dataset, query scdata.FilterPredicate, pol benchrun.Policy) (*benchrun.Result, error) {
	nObs, nnz := ds.NumObs(), ds.Counts.NNZ()
	r, err := benchrun.Run(name, func() (any, error) {
		sub := ds.Subset(query)
		if sub.NumObs() > ds.NumObs() {
			return nil, fmt.Errorf("subset grew from %d to %d cells", ds.NumObs(), sub.NumObs())
		}
		return sub.NumObs(), nil
	}, pol)
	if err != nil {
		return nil, err
	}
	if ds.NumObs() != nObs || ds.Counts.NNZ() != nnz {
		return nil, fmt.Errorf("%s: query mutated the dataset", name)
	}
	log.Printf("%s: %d runs, %d of %d cells pass", name, r.Iters(), r.Value, nObs)
	return r, nil
}

func writeBench(path string, ds *scdata.Dataset, results ...*benchrun.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := benchrun.NewWriter(f)
	w.SetConfig("cells", fmt.Sprint(ds.NumObs()))
	w.SetConfig("genes", fmt.Sprint(ds.NumVar()))
	for _, r := range results {
		if err := w.WriteResult(r); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func store(path, label string, results ...*benchrun.Result) error {
	db, err := benchstore.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	id, err := db.NewRun(label)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := db.InsertResult(id, r); err != nil {
			return err
		}
	}
	return nil
}

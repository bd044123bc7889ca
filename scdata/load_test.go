// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scdata

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTestDir writes a 3-gene × 3-cell matrix directory:
//
//	        c1 c2 c3
//	GENE1    5  0  1
//	GENE2    0  2  0
//	GENE3    7  3  4
func writeTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mtx := `%%MatrixMarket matrix coordinate integer general
% comment line
3 3 6
1 1 5
3 1 7
2 2 2
3 2 3
1 3 1
3 3 4
`
	files := map[string]string{
		"matrix.mtx":   mtx,
		"features.tsv": "ENSG1\tGENE1\tGene Expression\nENSG2\tGENE2\tGene Expression\nENSG3\tGENE3\tGene Expression\n",
		"barcodes.tsv": "AAAC-1\nAAAG-1\nAAAT-1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadMatrixMarket(t *testing.T) {
	dir := writeTestDir(t)
	ds, err := LoadMatrixMarket(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumObs() != 3 || ds.NumVar() != 3 {
		t.Fatalf("got %d×%d, want 3×3", ds.NumObs(), ds.NumVar())
	}
	if got := ds.Counts.At(0, 0); got != 5 {
		t.Errorf("Counts(0,0) = %v, want 5", got)
	}
	if got := ds.Counts.At(1, 2); got != 3 {
		t.Errorf("Counts(1,2) = %v, want 3", got)
	}
	if ds.Obs[0].NCounts != 12 || ds.Obs[0].NFeatures != 2 {
		t.Errorf("obs 0 = %+v, want NCounts 12 NFeatures 2", ds.Obs[0])
	}
	if ds.Var[1].Name != "GENE2" || ds.Var[1].NCells != 1 {
		t.Errorf("var 1 = %+v, want GENE2 in 1 cell", ds.Var[1])
	}
}

func TestLoadThresholds(t *testing.T) {
	dir := writeTestDir(t)
	// GENE2 appears in one cell; requiring two drops it. Cell 2
	// (AAAG-1) then has only GENE3 left, so requiring two genes
	// per cell drops the cell as well.
	ds, err := LoadMatrixMarket(dir, LoadOptions{MinCellsPerGene: 2, MinGenesPerCell: 2})
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumVar() != 2 {
		t.Errorf("got %d genes, want 2", ds.NumVar())
	}
	if ds.NumObs() != 2 {
		t.Errorf("got %d cells, want 2", ds.NumObs())
	}
	for _, o := range ds.Obs {
		if o.Barcode == "AAAG-1" {
			t.Errorf("cell AAAG-1 should have been filtered out")
		}
	}
}

func TestLoadGzip(t *testing.T) {
	dir := writeTestDir(t)
	// Replace barcodes.tsv with a gzipped version.
	raw, err := os.ReadFile(filepath.Join(dir, "barcodes.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "barcodes.tsv")); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, "barcodes.tsv.gz"))
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	zw.Write(raw)
	zw.Close()
	f.Close()

	ds, err := LoadMatrixMarket(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumObs() != 3 {
		t.Errorf("got %d obs, want 3", ds.NumObs())
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		_, err := LoadMatrixMarket(filepath.Join(t.TempDir(), "nope"), LoadOptions{})
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("got %v, want *LoadError", err)
		}
	})
	t.Run("bad header", func(t *testing.T) {
		dir := writeTestDir(t)
		os.WriteFile(filepath.Join(dir, "matrix.mtx"), []byte("garbage\n"), 0666)
		_, err := LoadMatrixMarket(dir, LoadOptions{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("got %v, want *SyntaxError", err)
		}
	})
	t.Run("size mismatch", func(t *testing.T) {
		dir := writeTestDir(t)
		os.WriteFile(filepath.Join(dir, "matrix.mtx"),
			[]byte("%%MatrixMarket matrix coordinate integer general\n5 3 0\n"), 0666)
		_, err := LoadMatrixMarket(dir, LoadOptions{})
		if err == nil {
			t.Fatal("expected error for dimension mismatch")
		}
	})
	t.Run("truncated entries", func(t *testing.T) {
		dir := writeTestDir(t)
		os.WriteFile(filepath.Join(dir, "matrix.mtx"),
			[]byte("%%MatrixMarket matrix coordinate integer general\n3 3 6\n1 1 5\n"), 0666)
		_, err := LoadMatrixMarket(dir, LoadOptions{})
		if err == nil {
			t.Fatal("expected error for truncated matrix")
		}
	})
}

func TestSummary(t *testing.T) {
	dir := writeTestDir(t)
	ds, err := LoadMatrixMarket(dir, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got := ds.Summary()
	want := "Dataset with 3 obs × 3 var (6 stored counts)"
	if len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("Summary() = %q, want prefix %q", got, want)
	}
}

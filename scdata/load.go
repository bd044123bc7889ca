// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scdata

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// LoadOptions configures the filtering thresholds applied while
// loading a count matrix.
type LoadOptions struct {
	// MinCellsPerGene drops genes detected in fewer than this many
	// cells.
	MinCellsPerGene int

	// MinGenesPerCell drops cells with fewer than this many
	// detected genes (counted over the genes that survive
	// MinCellsPerGene).
	MinGenesPerCell int
}

// A LoadError reports a fatal problem reading an input directory.
// Loading never continues past a LoadError.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// A SyntaxError reports malformed content on a particular line of an
// input file.
type SyntaxError struct {
	Path string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// LoadMatrixMarket reads a matrix exchange triplet directory: a
// MatrixMarket coordinate file "matrix.mtx" (genes × cells), a
// feature list "features.tsv" (or "genes.tsv"), and a barcode list
// "barcodes.tsv". Each file may also be present gzip-compressed with
// a ".gz" suffix.
//
// The returned Dataset has one row per surviving cell with raw counts
// in Counts and per-cell NCounts/NFeatures filled in.
func LoadMatrixMarket(dir string, opts LoadOptions) (*Dataset, error) {
	genes, err := readFeatures(dir)
	if err != nil {
		return nil, err
	}
	barcodes, err := readLines(dir, "barcodes.tsv")
	if err != nil {
		return nil, err
	}
	tri, err := readTriplets(dir, len(genes), len(barcodes))
	if err != nil {
		return nil, err
	}
	return assemble(genes, barcodes, tri, opts), nil
}

type triplet struct {
	gene, cell int
	value      float64
}

// assemble builds the Dataset from raw triplets, applying the two
// loading thresholds: genes detected in too few cells first, then
// cells with too few surviving genes.
func assemble(genes []Gene, barcodes []string, tri []triplet, opts LoadOptions) *Dataset {
	geneCells := make([]int, len(genes))
	for _, t := range tri {
		if t.value != 0 {
			geneCells[t.gene]++
		}
	}
	keepGene := make([]bool, len(genes))
	geneMap := make([]int, len(genes))
	var keptGenes []Gene
	for g := range genes {
		if geneCells[g] >= opts.MinCellsPerGene {
			keepGene[g] = true
			geneMap[g] = len(keptGenes)
			genes[g].NCells = geneCells[g]
			keptGenes = append(keptGenes, genes[g])
		}
	}

	// Bucket surviving entries by cell.
	perCell := make([][]triplet, len(barcodes))
	for _, t := range tri {
		if t.value != 0 && keepGene[t.gene] {
			perCell[t.cell] = append(perCell[t.cell], t)
		}
	}

	nnz := 0
	var keptCells []int
	for c := range perCell {
		if len(perCell[c]) >= opts.MinGenesPerCell {
			keptCells = append(keptCells, c)
			nnz += len(perCell[c])
		}
	}

	ds := &Dataset{
		Obs:    make([]Obs, 0, len(keptCells)),
		Var:    keptGenes,
		Counts: NewCSR(len(keptCells), len(keptGenes), nnz),
	}
	var cols []int
	var vals []float64
	for _, c := range keptCells {
		ts := perCell[c]
		sort.Slice(ts, func(i, j int) bool { return geneMap[ts[i].gene] < geneMap[ts[j].gene] })
		cols, vals = cols[:0], vals[:0]
		var total float64
		for _, t := range ts {
			cols = append(cols, geneMap[t.gene])
			vals = append(vals, t.value)
			total += t.value
		}
		ds.Counts.AppendRow(cols, vals)
		ds.Obs = append(ds.Obs, Obs{
			Barcode:   barcodes[c],
			NCounts:   total,
			NFeatures: len(ts),
		})
	}
	return ds
}

// readTriplets parses the MatrixMarket coordinate file. The file
// header declares genes × cells; entries are 1-based.
func readTriplets(dir string, nGenes, nCells int) ([]triplet, error) {
	f, path, err := openMaybeGzip(dir, "matrix.mtx")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0

	// Header line.
	if !s.Scan() {
		return nil, &LoadError{path, fmt.Errorf("empty matrix file")}
	}
	line++
	header := strings.Fields(s.Text())
	if len(header) < 4 || header[0] != "%%MatrixMarket" || header[1] != "matrix" || header[2] != "coordinate" {
		return nil, &LoadError{path, &SyntaxError{path, line, "not a MatrixMarket coordinate file"}}
	}

	// Comment lines, then the size line.
	var nRows, nCols, nnz int
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		f := strings.Fields(text)
		if len(f) != 3 {
			return nil, &LoadError{path, &SyntaxError{path, line, "malformed size line"}}
		}
		var err error
		if nRows, err = strconv.Atoi(f[0]); err == nil {
			if nCols, err = strconv.Atoi(f[1]); err == nil {
				nnz, err = strconv.Atoi(f[2])
			}
		}
		if err != nil {
			return nil, &LoadError{path, &SyntaxError{path, line, "malformed size line: " + err.Error()}}
		}
		break
	}
	if nRows != nGenes || nCols != nCells {
		return nil, &LoadError{path, fmt.Errorf("matrix is %d×%d but found %d features and %d barcodes", nRows, nCols, nGenes, nCells)}
	}

	tri := make([]triplet, 0, nnz)
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" {
			continue
		}
		f := strings.Fields(text)
		if len(f) != 3 {
			return nil, &LoadError{path, &SyntaxError{path, line, "malformed entry"}}
		}
		gene, err1 := strconv.Atoi(f[0])
		cell, err2 := strconv.Atoi(f[1])
		val, err3 := strconv.ParseFloat(f[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, &LoadError{path, &SyntaxError{path, line, "malformed entry"}}
		}
		if gene < 1 || gene > nGenes || cell < 1 || cell > nCells {
			return nil, &LoadError{path, &SyntaxError{path, line, "entry out of range"}}
		}
		tri = append(tri, triplet{gene - 1, cell - 1, val})
	}
	if err := s.Err(); err != nil {
		return nil, &LoadError{path, err}
	}
	if len(tri) != nnz {
		return nil, &LoadError{path, fmt.Errorf("expected %d entries, found %d", nnz, len(tri))}
	}
	return tri, nil
}

// readFeatures reads the feature list, accepting both the v3
// "features.tsv" and the legacy "genes.tsv" name. Each line is
// "id<TAB>name[<TAB>type]"; a bare id is also accepted.
func readFeatures(dir string) ([]Gene, error) {
	name := "features.tsv"
	if !fileExists(dir, name) && fileExists(dir, "genes.tsv") {
		name = "genes.tsv"
	}
	lines, err := readLines(dir, name)
	if err != nil {
		return nil, err
	}
	genes := make([]Gene, len(lines))
	for i, l := range lines {
		f := strings.Split(l, "\t")
		genes[i].ID = f[0]
		if len(f) > 1 {
			genes[i].Name = f[1]
		} else {
			genes[i].Name = f[0]
		}
	}
	return genes, nil
}

func readLines(dir, name string) ([]string, error) {
	f, path, err := openMaybeGzip(dir, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if text := strings.TrimRight(s.Text(), "\r\n"); text != "" {
			lines = append(lines, text)
		}
	}
	if err := s.Err(); err != nil {
		return nil, &LoadError{path, err}
	}
	if len(lines) == 0 {
		return nil, &LoadError{path, fmt.Errorf("no entries")}
	}
	return lines, nil
}

// openMaybeGzip opens dir/name, falling back to dir/name.gz with
// transparent decompression.
func openMaybeGzip(dir, name string) (io.ReadCloser, string, error) {
	path := filepath.Join(dir, name)
	if f, err := os.Open(path); err == nil {
		return f, path, nil
	}
	gzPath := path + ".gz"
	f, err := os.Open(gzPath)
	if err != nil {
		return nil, path, &LoadError{path, fmt.Errorf("missing input file (also tried %s)", gzPath)}
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, gzPath, &LoadError{gzPath, err}
	}
	return &gzipFile{zr, f}, gzPath, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	if err := g.Reader.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func fileExists(dir, name string) bool {
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		return true
	}
	_, err := os.Stat(filepath.Join(dir, name+".gz"))
	return err == nil
}

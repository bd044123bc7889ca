// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scdata

import "sort"

// A CSR is a sparse matrix in compressed sparse row form. For a
// Dataset, rows are observations (cells) and columns are features
// (genes).
//
// A CSR is treated as immutable once attached to a Dataset. Operations
// that would change its contents return a new CSR.
type CSR struct {
	Rows, Cols int

	// RowPtr has Rows+1 entries. The nonzero entries of row i are
	// ColIdx[RowPtr[i]:RowPtr[i+1]] and the parallel entries of
	// Data. Within a row, ColIdx is strictly increasing.
	RowPtr []int
	ColIdx []int
	Data   []float64
}

// NewCSR returns an empty rows×cols matrix with capacity for nnz
// nonzero entries.
func NewCSR(rows, cols, nnz int) *CSR {
	return &CSR{
		Rows:   rows,
		Cols:   cols,
		RowPtr: make([]int, 1, rows+1),
		ColIdx: make([]int, 0, nnz),
		Data:   make([]float64, 0, nnz),
	}
}

// AppendRow appends one row of nonzero entries. Rows must be appended
// in order; cols must be strictly increasing within the row.
func (m *CSR) AppendRow(cols []int, vals []float64) {
	if len(cols) != len(vals) {
		panic("scdata: column/value length mismatch")
	}
	m.ColIdx = append(m.ColIdx, cols...)
	m.Data = append(m.Data, vals...)
	m.RowPtr = append(m.RowPtr, len(m.ColIdx))
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.Data) }

// At returns the value at (i, j), or 0 if no entry is stored.
func (m *CSR) At(i, j int) float64 {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	idx := m.ColIdx[lo:hi]
	k := sort.SearchInts(idx, j)
	if k < len(idx) && idx[k] == j {
		return m.Data[lo+k]
	}
	return 0
}

// Row returns the stored column indices and values of row i. The
// returned slices alias the matrix and must not be modified.
func (m *CSR) Row(i int) (cols []int, vals []float64) {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	return m.ColIdx[lo:hi], m.Data[lo:hi]
}

// RowSum returns the sum of the stored values of row i.
func (m *CSR) RowSum(i int) float64 {
	var sum float64
	for _, v := range m.Data[m.RowPtr[i]:m.RowPtr[i+1]] {
		sum += v
	}
	return sum
}

// RowNNZ returns the number of stored entries in row i.
func (m *CSR) RowNNZ(i int) int {
	return m.RowPtr[i+1] - m.RowPtr[i]
}

// Clone returns a deep copy of m.
func (m *CSR) Clone() *CSR {
	return &CSR{
		Rows:   m.Rows,
		Cols:   m.Cols,
		RowPtr: append([]int(nil), m.RowPtr...),
		ColIdx: append([]int(nil), m.ColIdx...),
		Data:   append([]float64(nil), m.Data...),
	}
}

// Map returns a new CSR with the same sparsity structure and each
// stored value v of row i replaced by f(i, v).
func (m *CSR) Map(f func(row int, v float64) float64) *CSR {
	out := m.Clone()
	for i := 0; i < m.Rows; i++ {
		for k := out.RowPtr[i]; k < out.RowPtr[i+1]; k++ {
			out.Data[k] = f(i, out.Data[k])
		}
	}
	return out
}

// SelectRows returns a new CSR containing the rows of m given by idx,
// in order. It does not modify m.
func (m *CSR) SelectRows(idx []int) *CSR {
	nnz := 0
	for _, i := range idx {
		nnz += m.RowNNZ(i)
	}
	out := NewCSR(len(idx), m.Cols, nnz)
	for _, i := range idx {
		cols, vals := m.Row(i)
		out.AppendRow(cols, vals)
	}
	return out
}

// SelectCols returns a new CSR containing the columns of m given by
// idx, renumbered to 0..len(idx)-1 in the given order. It does not
// modify m.
func (m *CSR) SelectCols(idx []int) *CSR {
	remap := make(map[int]int, len(idx))
	for new, old := range idx {
		remap[old] = new
	}
	out := NewCSR(m.Rows, len(idx), 0)
	var cols []int
	var vals []float64
	for i := 0; i < m.Rows; i++ {
		cols, vals = cols[:0], vals[:0]
		rc, rv := m.Row(i)
		for k, j := range rc {
			if nj, ok := remap[j]; ok {
				cols = append(cols, nj)
				vals = append(vals, rv[k])
			}
		}
		// Renumbering can reorder columns within the row.
		sortRow(cols, vals)
		out.AppendRow(cols, vals)
	}
	return out
}

// ColStats returns the per-column mean and variance of m, counting
// implicit zeros. The variance is the unbiased sample variance.
func (m *CSR) ColStats() (mean, variance []float64) {
	mean = make([]float64, m.Cols)
	sumsq := make([]float64, m.Cols)
	for k, j := range m.ColIdx {
		v := m.Data[k]
		mean[j] += v
		sumsq[j] += v * v
	}
	n := float64(m.Rows)
	variance = make([]float64, m.Cols)
	for j := range mean {
		mean[j] /= n
		if m.Rows > 1 {
			// E[x^2] - E[x]^2, corrected to the sample variance.
			variance[j] = (sumsq[j] - n*mean[j]*mean[j]) / (n - 1)
			if variance[j] < 0 {
				variance[j] = 0
			}
		}
	}
	return mean, variance
}

type rowSorter struct {
	cols []int
	vals []float64
}

func (s rowSorter) Len() int           { return len(s.cols) }
func (s rowSorter) Less(i, j int) bool { return s.cols[i] < s.cols[j] }
func (s rowSorter) Swap(i, j int) {
	s.cols[i], s.cols[j] = s.cols[j], s.cols[i]
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
}

func sortRow(cols []int, vals []float64) {
	if !sort.IntsAreSorted(cols) {
		sort.Sort(rowSorter{cols, vals})
	}
}

// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scdata

import (
	"math"
	"testing"
)

// testMatrix returns the 3×4 matrix
//
//	1 0 2 0
//	0 0 0 3
//	4 5 0 0
func testMatrix() *CSR {
	m := NewCSR(3, 4, 5)
	m.AppendRow([]int{0, 2}, []float64{1, 2})
	m.AppendRow([]int{3}, []float64{3})
	m.AppendRow([]int{0, 1}, []float64{4, 5})
	return m
}

func TestCSRAt(t *testing.T) {
	m := testMatrix()
	want := [][]float64{
		{1, 0, 2, 0},
		{0, 0, 0, 3},
		{4, 5, 0, 0},
	}
	for i := range want {
		for j := range want[i] {
			if got := m.At(i, j); got != want[i][j] {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, got, want[i][j])
			}
		}
	}
	if m.NNZ() != 5 {
		t.Errorf("NNZ = %d, want 5", m.NNZ())
	}
	if got := m.RowSum(0); got != 3 {
		t.Errorf("RowSum(0) = %v, want 3", got)
	}
	if got := m.RowNNZ(2); got != 2 {
		t.Errorf("RowNNZ(2) = %d, want 2", got)
	}
}

func TestCSRSelectRows(t *testing.T) {
	m := testMatrix()
	s := m.SelectRows([]int{2, 0})
	if s.Rows != 2 || s.Cols != 4 {
		t.Fatalf("got %d×%d, want 2×4", s.Rows, s.Cols)
	}
	if s.At(0, 1) != 5 || s.At(1, 2) != 2 {
		t.Errorf("selected rows hold wrong values: %v %v", s.At(0, 1), s.At(1, 2))
	}
	// The source must be untouched.
	if m.Rows != 3 || m.NNZ() != 5 || m.At(0, 0) != 1 {
		t.Errorf("SelectRows modified its input")
	}
}

func TestCSRSelectCols(t *testing.T) {
	m := testMatrix()
	s := m.SelectCols([]int{3, 0})
	if s.Rows != 3 || s.Cols != 2 {
		t.Fatalf("got %d×%d, want 3×2", s.Rows, s.Cols)
	}
	// Column 0 of s is old column 3; column 1 is old column 0.
	want := [][]float64{
		{0, 1},
		{3, 0},
		{0, 4},
	}
	for i := range want {
		for j := range want[i] {
			if got := s.At(i, j); got != want[i][j] {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, got, want[i][j])
			}
		}
	}
}

func TestCSRMap(t *testing.T) {
	m := testMatrix()
	doubled := m.Map(func(_ int, v float64) float64 { return 2 * v })
	if doubled.At(2, 1) != 10 {
		t.Errorf("mapped value = %v, want 10", doubled.At(2, 1))
	}
	if m.At(2, 1) != 5 {
		t.Errorf("Map modified its input")
	}
}

func TestCSRColStats(t *testing.T) {
	m := testMatrix()
	mean, variance := m.ColStats()
	// Column 0 is [1 0 4]: mean 5/3, var ((1-5/3)^2+(5/3)^2+(4-5/3)^2)/2.
	wantMean := 5.0 / 3
	wantVar := (math.Pow(1-wantMean, 2) + wantMean*wantMean + math.Pow(4-wantMean, 2)) / 2
	if math.Abs(mean[0]-wantMean) > 1e-12 {
		t.Errorf("mean[0] = %v, want %v", mean[0], wantMean)
	}
	if math.Abs(variance[0]-wantVar) > 1e-12 {
		t.Errorf("variance[0] = %v, want %v", variance[0], wantVar)
	}
}

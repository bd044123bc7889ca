// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"strings"
	"testing"
	"time"

	"github.com/cellbench/cellbench/benchrun"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{123 * time.Second, "123s"},
		{12340 * time.Millisecond, "12.3s"},
		{1234 * time.Millisecond, "1.23s"},
		{123 * time.Millisecond, "123ms"},
		{12340 * time.Microsecond, "12.3ms"},
		{1234 * time.Microsecond, "1.23ms"},
		{123 * time.Microsecond, "123µs"},
		{12340 * time.Nanosecond, "12.3µs"},
		{1234 * time.Nanosecond, "1.23µs"},
		{123 * time.Nanosecond, "123ns"},
		{12 * time.Nanosecond, "12.0ns"},
		{1 * time.Nanosecond, "1.00ns"},
		{0, "0.00ns"},
	}
	for _, test := range tests {
		if got := FormatTime(test.d); got != test.want {
			t.Errorf("FormatTime(%v) = %q, want %q", test.d, got, test.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		b    uint64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.00KiB"},
		{3 << 10, "3.00KiB"},
		{150 << 10, "150KiB"},
		{2 << 20, "2.00MiB"},
		{5 << 30, "5.00GiB"},
		{3 << 40, "3.00TiB"},
	}
	for _, test := range tests {
		if got := FormatBytes(test.b); got != test.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", test.b, got, test.want)
		}
	}
}

func msResult(name string, ms ...int) *benchrun.Result {
	r := &benchrun.Result{Name: name, PeakHeap: 2048}
	for _, m := range ms {
		r.Times = append(r.Times, time.Duration(m)*time.Millisecond)
		r.Allocs = append(r.Allocs, 1024)
	}
	return r
}

func TestBuild(t *testing.T) {
	tab := Build(msResult("before", 3, 1, 2))
	if len(tab.Rows) != 1 || tab.Delta != nil {
		t.Fatalf("Build: got %d rows, delta %v", len(tab.Rows), tab.Delta)
	}
	r := tab.Rows[0]
	want := Row{
		Name: "before", N: 3,
		TimeMin: 1 * time.Millisecond, TimeMedian: 2 * time.Millisecond, TimeMax: 3 * time.Millisecond,
		TotalAlloc: 3072, PeakHeap: 2048,
	}
	if r != want {
		t.Errorf("row = %+v, want %+v", r, want)
	}
}

func TestFormatText(t *testing.T) {
	var b strings.Builder
	if err := FormatText(&b, Build(msResult("before", 1, 2, 3))); err != nil {
		t.Fatal(err)
	}
	want := `name    n     min  median     max  total alloc  peak heap
before  3  1.00ms  2.00ms  3.00ms      3.00KiB    2.00KiB
`
	if got := b.String(); got != want {
		t.Errorf("FormatText:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatCSV(t *testing.T) {
	var b strings.Builder
	if err := FormatCSV(&b, Build(msResult("before", 1, 2, 3))); err != nil {
		t.Fatal(err)
	}
	want := `name,n,min-ns,median-ns,max-ns,total-alloc-bytes,peak-heap-bytes
before,3,1000000,2000000,3000000,3072,2048
`
	if got := b.String(); got != want {
		t.Errorf("FormatCSV:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatHTML(t *testing.T) {
	var b strings.Builder
	tab := BuildComparison(msResult("before", 1, 2, 3, 4), msResult("after", 5, 6, 7, 8))
	if err := FormatHTML(&b, tab); err != nil {
		t.Fatal(err)
	}
	got := b.String()
	for _, want := range []string{"<table class='benchtab'>", "<td>before<td>4", "<td>after<td>4", "class='delta'"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatHTML output missing %q:\n%s", want, got)
		}
	}
}

func TestBuildComparison(t *testing.T) {
	// Fully separated samples of four runs each differ at the
	// conventional 0.05 level under the U-test.
	tab := BuildComparison(msResult("before", 1, 2, 3, 4), msResult("after", 5, 6, 7, 8))
	if tab.Delta == nil {
		t.Fatal("BuildComparison: no delta")
	}
	if tab.Delta.Time != "+160.00%" {
		t.Errorf("time delta = %q, want +160.00%%", tab.Delta.Time)
	}
	if p := tab.Delta.TimeP.P; !(p < 0.05) {
		t.Errorf("time p = %v, want < 0.05", p)
	}
	// Allocs are identical, so the test degenerates and the delta
	// is reported as indistinguishable.
	if tab.Delta.Alloc != "~" {
		t.Errorf("alloc delta = %q, want ~", tab.Delta.Alloc)
	}
}

func TestWriteChart(t *testing.T) {
	var b strings.Builder
	if err := WriteChart(&b, msResult("before", 1, 2, 3), msResult("after", 4, 5, 6)); err != nil {
		t.Fatal(err)
	}
	got := b.String()
	for _, want := range []string{"before", "after", "run 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("chart output missing %q", want)
		}
	}
}

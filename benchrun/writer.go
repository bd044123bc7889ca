// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrun

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// A Writer emits Results in the Go benchmark text format, one line
// per measured run, so output can be fed to benchstat-family tools.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer

	first      bool
	fileConfig map[string]string
}

// NewWriter returns a writer emitting benchmark lines to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, first: true, fileConfig: make(map[string]string)}
}

// SetConfig records a file configuration key. Changed keys are
// written out before the next result.
func (w *Writer) SetConfig(key, value string) {
	w.fileConfig[key] = value
}

// WriteResult writes one benchmark line per measured run of r,
// preceded by any pending configuration block.
func (w *Writer) WriteResult(r *Result) error {
	if len(w.fileConfig) > 0 {
		w.writeFileConfig()
	}
	for i, d := range r.Times {
		fmt.Fprintf(&w.buf, "Benchmark%s 1 %d ns/op %d B/op\n", r.Name, d.Nanoseconds(), r.Allocs[i])
	}
	w.first = false

	// Writes to the buffer can't fail, so only the flush needs
	// checking.
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) writeFileConfig() {
	if !w.first {
		w.buf.WriteByte('\n')
	}
	keys := make([]string, 0, len(w.fileConfig))
	for k := range w.fileConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&w.buf, "%s: %s\n", k, w.fileConfig[k])
	}
	w.buf.WriteByte('\n')
	w.fileConfig = make(map[string]string)
	w.first = true
}

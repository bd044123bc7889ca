// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scpipe implements the analysis pipeline stages over an
// scdata.Dataset: normalization, variable-gene selection, scaling,
// principal-component embedding, neighbor graph construction, and
// graph clustering.
//
// Stages are pure with respect to their input: each returns a new
// Dataset with the stage's annotation attached, sharing the unchanged
// parts of the input. No stage adds or drops observations.
package scpipe

// A StageError reports a fatal failure in a named pipeline stage, so
// a caller can tell the user which stage went wrong.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Copyright 2025 The Cellbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchstore persists benchmark results to a SQLite database
// so runs can be compared across invocations.
package benchstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cellbench/cellbench/benchrun"
)

// DB is a handle to a results database. It's safe for concurrent use
// by multiple goroutines.
type DB struct {
	sql *sql.DB
	// prepared statements
	insertRun    *sql.Stmt
	insertResult *sql.Stmt
	insertSample *sql.Stmt
}

// createStmts holds the CREATE statements run on every open. Samples
// are stored per run so no distribution information is lost.
const createStmts = `
CREATE TABLE IF NOT EXISTS Runs (
	RunID INTEGER PRIMARY KEY AUTOINCREMENT,
	StartTime TIMESTAMP,
	Label TEXT
);
CREATE TABLE IF NOT EXISTS Results (
	RunID INTEGER,
	Name TEXT,
	PeakHeap INTEGER,
	PRIMARY KEY (RunID, Name),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Samples (
	RunID INTEGER,
	Name TEXT,
	Iter INTEGER,
	TimeNS INTEGER,
	AllocBytes INTEGER,
	PRIMARY KEY (RunID, Name, Iter),
	FOREIGN KEY (RunID, Name) REFERENCES Results(RunID, Name) ON DELETE CASCADE
);
`

// Open opens the results database at dataSourceName, creating any
// missing tables. Use ":memory:" for a transient database.
func Open(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	d := &DB{sql: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) createTables() error {
	for _, q := range strings.Split(createStmts, ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

func (db *DB) prepareStatements() error {
	var err error
	db.insertRun, err = db.sql.Prepare("INSERT INTO Runs(StartTime, Label) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.insertResult, err = db.sql.Prepare("INSERT INTO Results(RunID, Name, PeakHeap) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertSample, err = db.sql.Prepare("INSERT INTO Samples(RunID, Name, Iter, TimeNS, AllocBytes) VALUES (?, ?, ?, ?, ?)")
	return err
}

// NewRun records the start of a benchmark invocation and returns its
// run ID. All results of the invocation are stored under that ID.
func (db *DB) NewRun(label string) (int64, error) {
	res, err := db.insertRun.Exec(time.Now().UTC(), label)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertResult stores one result with all its per-run samples under
// the given run ID.
func (db *DB) InsertResult(runID int64, r *benchrun.Result) error {
	tx, err := db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Stmt(db.insertResult).Exec(runID, r.Name, r.PeakHeap); err != nil {
		return err
	}
	for i, d := range r.Times {
		if _, err := tx.Stmt(db.insertSample).Exec(runID, r.Name, i, d.Nanoseconds(), r.Allocs[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Result reads back the named result of a run, with its samples in
// iteration order. It returns sql.ErrNoRows if the result does not
// exist.
func (db *DB) Result(runID int64, name string) (*benchrun.Result, error) {
	r := &benchrun.Result{Name: name}
	if err := db.sql.QueryRow("SELECT PeakHeap FROM Results WHERE RunID = ? AND Name = ?", runID, name).Scan(&r.PeakHeap); err != nil {
		return nil, err
	}
	rows, err := db.sql.Query("SELECT TimeNS, AllocBytes FROM Samples WHERE RunID = ? AND Name = ? ORDER BY Iter", runID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ns int64
		var alloc uint64
		if err := rows.Scan(&ns, &alloc); err != nil {
			return nil, err
		}
		r.Times = append(r.Times, time.Duration(ns))
		r.Allocs = append(r.Allocs, alloc)
	}
	return r, rows.Err()
}

// Runs lists the stored run IDs in increasing order.
func (db *DB) Runs() ([]int64, error) {
	rows, err := db.sql.Query("SELECT RunID FROM Runs ORDER BY RunID")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

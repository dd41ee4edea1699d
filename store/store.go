// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package store persists processing reports in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/celldex"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	config TEXT NOT NULL DEFAULT '',
	analysed INTEGER NOT NULL,
	failed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	day TEXT NOT NULL,
	slice TEXT NOT NULL,
	cell TEXT NOT NULL,
	trace TEXT NOT NULL,
	label TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('number', 'text')),
	number REAL,
	text TEXT,
	PRIMARY KEY (run_id, day, slice, cell, trace, label)
);

CREATE TABLE IF NOT EXISTS failures (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	day TEXT NOT NULL,
	slice TEXT NOT NULL,
	cell TEXT NOT NULL,
	trace TEXT NOT NULL,
	file TEXT NOT NULL,
	stage TEXT NOT NULL,
	error TEXT NOT NULL
);
`

// Store is a SQLite database of processing runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps in-memory databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run summarises a stored processing run.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Config    string // Configuration the run was made with
	Analysed  int
	Failed    int
}

// Failure is a stored failed item.
type Failure struct {
	Cell  celldex.CellID
	Trace string
	File  string
	Stage celldex.Stage
	Error string
}

// Save stores a report as a new run and returns the run's ID.
func (s *Store) Save(ctx context.Context, startedAt time.Time, config string, report *celldex.Report) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, config, analysed, failed)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), startedAt.UTC().Format(time.RFC3339Nano), config, report.Analysed, len(report.Failures)); err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	insertResult, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, position, day, slice, cell, trace, label, kind, number, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare results: %w", err)
	}
	defer insertResult.Close()

	var position int
	for _, cell := range report.Table.Cells() {
		for _, col := range report.Table.Columns() {
			v, ok := report.Table.Get(cell, col)
			if !ok {
				continue
			}

			kind, number, text := "number", sql.NullFloat64{}, sql.NullString{}
			if v.IsText() {
				kind, text = "text", sql.NullString{String: v.String(), Valid: true}
			} else if f, _ := v.Float(); !math.IsNaN(f) && !math.IsInf(f, 0) {
				number = sql.NullFloat64{Float64: f, Valid: true}
			}

			if _, err := insertResult.ExecContext(ctx, id.String(), position,
				cell.Day, cell.Slice, cell.Cell, col.Trace, col.Label, kind, number, text); err != nil {
				return uuid.Nil, fmt.Errorf("insert result: %w", err)
			}
			position++
		}
	}

	for _, f := range report.Failures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, day, slice, cell, trace, file, stage, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id.String(), f.Cell.Day, f.Cell.Slice, f.Cell.Cell, f.Trace.String(), f.File, string(f.Stage), f.Err.Error()); err != nil {
			return uuid.Nil, fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Runs returns every run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, config, analysed, failed
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id, startedAt string
		if err := rows.Scan(&id, &startedAt, &r.Config, &r.Analysed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse run start: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results rebuilds the result table of a run.
func (s *Store) Results(ctx context.Context, runID uuid.UUID) (*celldex.Table, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, slice, cell, trace, label, kind, number, text
		FROM results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	table := celldex.NewTable()
	for rows.Next() {
		var cell celldex.CellID
		var col celldex.Column
		var kind string
		var number sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&cell.Day, &cell.Slice, &cell.Cell, &col.Trace, &col.Label, &kind, &number, &text); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		v := pincer.Number(math.NaN())
		switch {
		case kind == "text":
			v = pincer.Text(text.String)
		case number.Valid:
			v = pincer.Number(number.Float64)
		}
		table.Set(cell, col, v)
	}
	return table, rows.Err()
}

// Failures returns the failed items of a run.
func (s *Store) Failures(ctx context.Context, runID uuid.UUID) ([]Failure, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, slice, cell, trace, file, stage, error
		FROM failures
		WHERE run_id = ?
		ORDER BY rowid ASC
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var stage string
		if err := rows.Scan(&f.Cell.Day, &f.Cell.Slice, &f.Cell.Cell, &f.Trace, &f.File, &stage, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Stage = celldex.Stage(stage)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Delete removes a run and everything stored with it.
func (s *Store) Delete(ctx context.Context, runID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID.String())
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, runID uuid.UUID) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID.String()).Scan(&n); err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

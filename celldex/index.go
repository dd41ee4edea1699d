// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package celldex runs analyses over every recording listed in a cell index
// and collects the results into a table keyed by cell, trace and result label.
package celldex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedIndex is returned when an index or labels file cannot be interpreted.
var ErrMalformedIndex = errors.New("malformed index")

// CellID identifies a recorded cell.
type CellID struct {
	Day   string // Recording day, also the prefix of every file name
	Slice string
	Cell  string
}

func (c CellID) String() string {
	return c.Day + "/" + c.Slice + "/" + c.Cell
}

// Trace is one recording column of the index, written as "<group>/<name>".
type Trace struct {
	Group string
	Name  string
}

func (t Trace) String() string {
	return t.Group + "/" + t.Name
}

// Row lists the recording codes of one cell, aligned with Index.Traces.
// An empty code means the trace was not recorded.
type Row struct {
	Cell  CellID
	Codes []string
}

// Index is the table of recordings made for every cell.
type Index struct {
	Traces []Trace
	Rows   []Row
}

// Group returns the positions of the traces belonging to group.
func (ix *Index) Group(group string) []int {
	var idx []int
	for i, t := range ix.Traces {
		if t.Group == group {
			idx = append(idx, i)
		}
	}
	return idx
}

var keyColumns = []string{"Day", "Slice", "Cell"}

// ReadIndex parses an index CSV. The header starts with Day, Slice and Cell
// followed by one "<group>/<trace>" column per recording.
func ReadIndex(r io.Reader) (*Index, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	ix := &Index{}
	seen := map[Trace]bool{}
	for _, col := range records[0][len(keyColumns):] {
		group, name, ok := strings.Cut(strings.TrimSpace(col), "/")
		if !ok || group == "" || name == "" {
			return nil, fmt.Errorf("%w: column %q is not <group>/<trace>", ErrMalformedIndex, col)
		}
		t := Trace{Group: group, Name: name}
		if seen[t] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedIndex, col)
		}
		seen[t] = true
		ix.Traces = append(ix.Traces, t)
	}

	for _, rec := range records[1:] {
		codes := make([]string, len(ix.Traces))
		for i := range codes {
			codes[i] = strings.TrimSpace(rec[len(keyColumns)+i])
		}
		ix.Rows = append(ix.Rows, Row{Cell: cellOf(rec), Codes: codes})
	}
	return ix, nil
}

// ReadIndexFile parses the index CSV at path.
func ReadIndexFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening index: %w", err)
	}
	defer f.Close()

	ix, err := ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("error reading index %s: %w", path, err)
	}
	return ix, nil
}

// Labels are free form annotations of every cell (treatment, genotype...).
type Labels struct {
	Columns []string
	values  map[CellID][]string
}

// Get returns the annotations of cell, aligned with Columns.
func (l *Labels) Get(cell CellID) ([]string, bool) {
	if l == nil {
		return nil, false
	}
	v, ok := l.values[cell]
	return v, ok
}

// ReadLabels parses a labels CSV with Day, Slice and Cell followed by any columns.
func ReadLabels(r io.Reader) (*Labels, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	l := &Labels{values: map[CellID][]string{}}
	for _, col := range records[0][len(keyColumns):] {
		l.Columns = append(l.Columns, strings.TrimSpace(col))
	}
	for _, rec := range records[1:] {
		cell := cellOf(rec)
		if _, ok := l.values[cell]; ok {
			return nil, fmt.Errorf("%w: duplicate cell %s", ErrMalformedIndex, cell)
		}
		l.values[cell] = append([]string(nil), rec[len(keyColumns):]...)
	}
	return l, nil
}

// ReadLabelsFile parses the labels CSV at path.
func ReadLabelsFile(path string) (*Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening labels: %w", err)
	}
	defer f.Close()

	l, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("error reading labels %s: %w", path, err)
	}
	return l, nil
}

// readRecords reads a CSV whose header starts with the key columns.
func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedIndex)
	}

	header := records[0]
	if len(header) < len(keyColumns) {
		return nil, fmt.Errorf("%w: header must start with %s", ErrMalformedIndex, strings.Join(keyColumns, ", "))
	}
	for i, want := range keyColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, fmt.Errorf("%w: column %d is %q, expected %q", ErrMalformedIndex, i+1, header[i], want)
		}
	}
	return records, nil
}

func cellOf(rec []string) CellID {
	return CellID{
		Day:   strings.TrimSpace(rec[0]),
		Slice: strings.TrimSpace(rec[1]),
		Cell:  strings.TrimSpace(rec[2]),
	}
}

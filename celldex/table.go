// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package celldex

import (
	"math"

	"github.com/OpenPSG/pincer"
)

// SecondaryTrace is the trace name under which secondary measures are stored.
const SecondaryTrace = "secondary"

// Column addresses one result of a cell.
type Column struct {
	Trace string
	Label string
}

func (c Column) String() string {
	return c.Trace + ": " + c.Label
}

// Table holds results by cell and column. Cells and columns keep the order
// in which they were first seen.
type Table struct {
	cells   []CellID
	columns []Column
	seen    map[Column]bool
	values  map[CellID]map[Column]pincer.Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		seen:   map[Column]bool{},
		values: map[CellID]map[Column]pincer.Value{},
	}
}

// Set stores a value, replacing any previous value of the same cell and column.
func (t *Table) Set(cell CellID, col Column, v pincer.Value) {
	row, ok := t.values[cell]
	if !ok {
		row = map[Column]pincer.Value{}
		t.values[cell] = row
		t.cells = append(t.cells, cell)
	}
	if !t.seen[col] {
		t.seen[col] = true
		t.columns = append(t.columns, col)
	}
	row[col] = v
}

// Add stores every entry of results under trace.
func (t *Table) Add(cell CellID, trace string, results *pincer.Results) {
	for _, e := range results.Entries() {
		t.Set(cell, Column{Trace: trace, Label: e.Label}, e.Value)
	}
}

// Get returns the value of a cell and column.
func (t *Table) Get(cell CellID, col Column) (pincer.Value, bool) {
	v, ok := t.values[cell][col]
	return v, ok
}

// Cells returns the cells in insertion order.
func (t *Table) Cells() []CellID {
	return append([]CellID(nil), t.cells...)
}

// Columns returns the columns in insertion order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Len returns the number of stored values.
func (t *Table) Len() int {
	var n int
	for _, row := range t.values {
		n += len(row)
	}
	return n
}

// AddSecondary stores, for every cell, the mean of the numeric non-NaN values
// found in cols. Cells with none of the values get NaN.
func (t *Table) AddSecondary(name string, cols []Column) {
	for _, cell := range t.Cells() {
		var values []float64
		for _, col := range cols {
			v, ok := t.Get(cell, col)
			if !ok {
				continue
			}
			if f, ok := v.Float(); ok && !math.IsNaN(f) {
				values = append(values, f)
			}
		}
		t.Set(cell, Column{Trace: SecondaryTrace, Label: name}, pincer.Number(pincer.Mean(values)))
	}
}

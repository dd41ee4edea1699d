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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSV writes one row per cell: the cell key, its labels when given, then one
// column per "<trace>: <label>" result. Missing values are left empty.
func WriteCSV(w io.Writer, t *Table, labels *Labels) error {
	cw := csv.NewWriter(w)

	columns := t.Columns()
	header := append([]string(nil), keyColumns...)
	if labels != nil {
		header = append(header, labels.Columns...)
	}
	for _, col := range columns {
		header = append(header, col.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, cell := range t.Cells() {
		record := []string{cell.Day, cell.Slice, cell.Cell}
		if labels != nil {
			annotations, ok := labels.Get(cell)
			if !ok {
				annotations = make([]string, len(labels.Columns))
			}
			record = append(record, annotations...)
		}
		for _, col := range columns {
			var field string
			if v, ok := t.Get(cell, col); ok {
				field = v.String()
			}
			record = append(record, field)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing %s: %w", cell, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating parent directories.
func WriteCSVFile(path string, t *Table, labels *Labels) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return WriteCSV(f, t, labels)
}

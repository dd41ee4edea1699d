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
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/analysis"
	"github.com/OpenPSG/pincer/edf"
	"github.com/sirupsen/logrus"
)

// Job queues an analysis for every trace of an index group.
type Job struct {
	Group    string
	Analysis analysis.Analysis
}

// Recording is an open sweep source.
type Recording interface {
	pincer.Source
	io.Closer
}

// Opener opens the recording at path.
type Opener func(path string) (Recording, error)

// EDFOpener opens EDF sweep files and selects channel.
func EDFOpener(channel int) Opener {
	return func(path string) (Recording, error) {
		sf, err := edf.OpenSweeps(path, channel)
		if err != nil {
			return nil, err
		}
		return sf, nil
	}
}

// Stage names the step an item failed at.
type Stage string

const (
	StageName     Stage = "name"
	StageOpen     Stage = "open"
	StageAnalysis Stage = "analysis"
)

// Failure is an index item that produced no results.
type Failure struct {
	Cell  CellID
	Trace Trace
	File  string
	Stage Stage
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s (%s): %s: %v", f.Cell, f.Trace, f.File, f.Stage, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of Process.
type Report struct {
	Table    *Table
	Failures []Failure
	Analysed int // Recordings analysed successfully
}

// Processor runs queued analyses over the recordings of an index.
type Processor struct {
	Dir    string         // Directory holding the recordings
	Naming Naming         // Maps codes to file names
	Open   Opener         // Opens recordings, EDF channel 0 when nil
	Log    *logrus.Logger // Diagnostics, required
}

// Process runs every job over the traces of its group, in job order then index
// order. Items whose recording cannot be named, opened or analysed are logged,
// reported as failures and skipped. Only cancellation aborts the run.
func (p *Processor) Process(ctx context.Context, ix *Index, jobs []Job) (*Report, error) {
	open := p.Open
	if open == nil {
		open = EDFOpener(0)
	}

	report := &Report{Table: NewTable()}
	for _, job := range jobs {
		traces := ix.Group(job.Group)
		if len(traces) == 0 {
			p.Log.WithField("group", job.Group).Warn("No traces in group")
			continue
		}

		for _, row := range ix.Rows {
			for _, ti := range traces {
				if err := ctx.Err(); err != nil {
					return report, err
				}

				code := row.Codes[ti]
				if code == "" {
					continue
				}

				trace := ix.Traces[ti]
				log := p.Log.WithFields(logrus.Fields{
					"day":   row.Cell.Day,
					"slice": row.Cell.Slice,
					"cell":  row.Cell.Cell,
					"trace": trace.String(),
				})

				fail := func(file string, stage Stage, err error) {
					report.Failures = append(report.Failures, Failure{
						Cell: row.Cell, Trace: trace, File: file, Stage: stage, Err: err,
					})
				}

				name, err := p.Naming.FileName(row.Cell.Day, code)
				if err != nil {
					log.WithError(err).Warn("Skipping trace with a bad recording code")
					fail("", StageName, err)
					continue
				}
				path := filepath.Join(p.Dir, name)
				log = log.WithField("file", path)

				results, err := p.run(open, path, job.Analysis)
				if err != nil {
					stage := StageAnalysis
					if isOpenError(err) {
						stage = StageOpen
						log.WithError(err).Warn("Skipping recording")
					} else {
						log.WithError(err).Error("Analysis failed")
					}
					fail(path, stage, err)
					continue
				}

				report.Table.Add(row.Cell, trace.String(), results)
				report.Analysed++
				log.WithField("results", results.Len()).Debug("Analysed recording")
			}
		}
	}

	p.Log.WithFields(logrus.Fields{
		"analysed": report.Analysed,
		"failed":   len(report.Failures),
		"values":   report.Table.Len(),
	}).Info("Processing complete")
	return report, nil
}

type openError struct{ err error }

func (e openError) Error() string { return e.err.Error() }
func (e openError) Unwrap() error { return e.err }

func isOpenError(err error) bool {
	var oe openError
	return errors.As(err, &oe)
}

func (p *Processor) run(open Opener, path string, a analysis.Analysis) (*pincer.Results, error) {
	rec, err := open(path)
	if err != nil {
		return nil, openError{err: err}
	}
	defer rec.Close()

	return a.Run(rec)
}

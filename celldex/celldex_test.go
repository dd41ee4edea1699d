// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package celldex_test

import (
	"bytes"
	"context"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/analysis"
	"github.com/OpenPSG/pincer/celldex"
	"github.com/OpenPSG/pincer/edf"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const index = `Day,Slice,Cell,peak/first,peak/second,area/first
24n11,1,1,1,2.0,1
24n11,1,2,5,,
`

func TestReadIndex(t *testing.T) {
	ix, err := celldex.ReadIndex(strings.NewReader(index))
	require.NoError(t, err)

	assert.Equal(t, []celldex.Trace{
		{Group: "peak", Name: "first"},
		{Group: "peak", Name: "second"},
		{Group: "area", Name: "first"},
	}, ix.Traces)
	assert.Equal(t, []int{0, 1}, ix.Group("peak"))
	assert.Empty(t, ix.Group("nope"))

	require.Len(t, ix.Rows, 2)
	assert.Equal(t, celldex.CellID{Day: "24n11", Slice: "1", Cell: "2"}, ix.Rows[1].Cell)
	assert.Equal(t, []string{"5", "", ""}, ix.Rows[1].Codes)
}

func TestReadIndexMalformed(t *testing.T) {
	for _, doc := range []string{
		"",
		"Day,Slice\n",
		"Day,Plate,Cell,a/b\n",
		"Day,Slice,Cell,nogroup\n",
		"Day,Slice,Cell,a/b,a/b\n",
		"Day,Slice,Cell,a/b\n1,2\n",
	} {
		_, err := celldex.ReadIndex(strings.NewReader(doc))
		assert.ErrorIs(t, err, celldex.ErrMalformedIndex, doc)
	}
}

func TestFileName(t *testing.T) {
	n := celldex.Naming{Width: 3, Ext: ".edf"}

	name, err := n.FileName("24n11", "3.0")
	require.NoError(t, err)
	assert.Equal(t, "24n11003.edf", name)

	name, err = celldex.Naming{Width: 4, Ext: ".edf"}.FileName("24n11", "12345")
	require.NoError(t, err)
	assert.Equal(t, "24n1112345.edf", name)

	name, err = celldex.Naming{}.FileName("d", "7")
	require.NoError(t, err)
	assert.Equal(t, "d7", name)

	_, err = n.FileName("24n11", ".5")
	assert.ErrorIs(t, err, celldex.ErrMalformedIndex)
	_, err = n.FileName("24n11", "../1")
	assert.ErrorIs(t, err, celldex.ErrMalformedIndex)
}

func TestTable(t *testing.T) {
	a := celldex.CellID{Day: "d", Slice: "1", Cell: "1"}
	b := celldex.CellID{Day: "d", Slice: "1", Cell: "2"}

	tbl := celldex.NewTable()
	r := pincer.NewResults()
	r.SetFloat("x", 2)
	r.Set("note", pincer.Text("ok"))
	tbl.Add(a, "g/one", r)
	tbl.Set(a, celldex.Column{Trace: "g/two", Label: "x"}, pincer.Number(4))
	tbl.Set(b, celldex.Column{Trace: "g/two", Label: "x"}, pincer.Number(math.NaN()))

	assert.Equal(t, []celldex.CellID{a, b}, tbl.Cells())
	assert.Equal(t, 4, tbl.Len())

	tbl.AddSecondary("mean x", []celldex.Column{
		{Trace: "g/one", Label: "x"},
		{Trace: "g/two", Label: "x"},
		{Trace: "g/one", Label: "note"},
	})

	v, ok := tbl.Get(a, celldex.Column{Trace: celldex.SecondaryTrace, Label: "mean x"})
	require.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 3.0, f)

	v, _ = tbl.Get(b, celldex.Column{Trace: celldex.SecondaryTrace, Label: "mean x"})
	f, _ = v.Float()
	assert.True(t, math.IsNaN(f))
}

func writeRecording(t *testing.T, path string, peaks ...float64) {
	t.Helper()
	src := &pincer.MemorySource{Rate: 1000}
	for _, p := range peaks {
		sweep := make([]float64, 100)
		sweep[50] = p
		src.Sweeps = append(src.Sweeps, sweep)
	}
	require.NoError(t, edf.WriteSweeps(path, edf.SweepHeader{
		Label: "Im", Unit: "pA", SampleRate: 1000, SweepLength: 100, Range: 100,
	}, src))
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, filepath.Join(dir, "24n11001.edf"), 10, 20)
	writeRecording(t, filepath.Join(dir, "24n11002.edf"), 40)

	ix, err := celldex.ReadIndex(strings.NewReader(index))
	require.NoError(t, err)

	peak, err := analysis.NewPeakMagnitude(analysis.Common{Direction: pincer.Up})
	require.NoError(t, err)
	area, err := analysis.NewAreaUnderCurve(analysis.Common{Direction: pincer.Up})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	p := &celldex.Processor{
		Dir:    dir,
		Naming: celldex.Naming{Width: 3, Ext: ".edf"},
		Log:    logger,
	}

	report, err := p.Process(context.Background(), ix, []celldex.Job{
		{Group: "peak", Analysis: peak},
		{Group: "area", Analysis: area},
		{Group: "missing", Analysis: peak},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Analysed)

	// The recording of the second cell does not exist.
	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, "2", failure.Cell.Cell)
	assert.Equal(t, celldex.StageOpen, failure.Stage)
	assert.ErrorIs(t, failure, fs.ErrNotExist)

	cell := ix.Rows[0].Cell
	for col, want := range map[celldex.Column]float64{
		{Trace: "peak/first", Label: "Peak 0 Magnitude"}:   15,
		{Trace: "peak/second", Label: "Peak 0 Magnitude"}:  40,
		{Trace: "area/first", Label: "Sum AUC 0 ms*units"}: 15,
	} {
		v, ok := report.Table.Get(cell, col)
		require.True(t, ok, col.String())
		f, _ := v.Float()
		assert.InDelta(t, want, f, 0.01, col.String())
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["cell"] == "2" {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Equal(t, "Processing complete", hook.LastEntry().Message)
}

func TestProcessAnalysisFailure(t *testing.T) {
	dir := t.TempDir()
	// 100 ms recording, shorter than the region below.
	writeRecording(t, filepath.Join(dir, "24n11001.edf"), 10)

	long := &pincer.MemorySource{Rate: 1000, Sweeps: [][]float64{make([]float64, 200)}}
	long.Sweeps[0][120] = 30
	require.NoError(t, edf.WriteSweeps(filepath.Join(dir, "24n11002.edf"), edf.SweepHeader{
		Label: "Im", Unit: "pA", SampleRate: 1000, SweepLength: 200, Range: 100,
	}, long))

	ix, err := celldex.ReadIndex(strings.NewReader("Day,Slice,Cell,peak/short,peak/long\n24n11,1,1,1,2\n"))
	require.NoError(t, err)

	region, err := pincer.Span(0, 150)
	require.NoError(t, err)
	peak, err := analysis.NewPeakMagnitude(analysis.Common{Region: &region, Direction: pincer.Up})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	p := &celldex.Processor{
		Dir:    dir,
		Naming: celldex.Naming{Width: 3, Ext: ".edf"},
		Log:    logger,
	}

	report, err := p.Process(context.Background(), ix, []celldex.Job{{Group: "peak", Analysis: peak}})
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, celldex.StageAnalysis, failure.Stage)
	assert.Equal(t, "peak/short", failure.Trace.String())
	assert.ErrorIs(t, failure, pincer.ErrOutOfBounds)

	// The failure does not stop the next recording.
	assert.Equal(t, 1, report.Analysed)
	v, ok := report.Table.Get(ix.Rows[0].Cell, celldex.Column{Trace: "peak/long", Label: "Peak 0 Magnitude"})
	require.True(t, ok)
	f, _ := v.Float()
	assert.InDelta(t, 30, f, 0.01)

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["trace"] == "peak/short" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestProcessCancelled(t *testing.T) {
	ix, err := celldex.ReadIndex(strings.NewReader(index))
	require.NoError(t, err)

	peak, err := analysis.NewPeakMagnitude(analysis.Common{Direction: pincer.Up})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger, _ := logtest.NewNullLogger()
	p := &celldex.Processor{Dir: t.TempDir(), Log: logger}
	_, err = p.Process(ctx, ix, []celldex.Job{{Group: "peak", Analysis: peak}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteCSV(t *testing.T) {
	a := celldex.CellID{Day: "d", Slice: "1", Cell: "1"}
	b := celldex.CellID{Day: "d", Slice: "1", Cell: "2"}

	tbl := celldex.NewTable()
	tbl.Set(a, celldex.Column{Trace: "g/one", Label: "Peak 0 Magnitude"}, pincer.Number(2.5))
	tbl.Set(b, celldex.Column{Trace: "g/two", Label: "PPR, Bin 0"}, pincer.Number(1.5))

	labels, err := celldex.ReadLabels(strings.NewReader("Day,Slice,Cell,Treatment\nd,1,1,saline\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, celldex.WriteCSV(&buf, tbl, labels))
	assert.Equal(t, strings.Join([]string{
		`Day,Slice,Cell,Treatment,g/one: Peak 0 Magnitude,"g/two: PPR, Bin 0"`,
		`d,1,1,saline,2.5,`,
		`d,1,2,,,1.5`,
		``,
	}, "\n"), buf.String())
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/OpenPSG/pincer/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), errOut.String())
	return out.String()
}

func TestAnalysesCmd(t *testing.T) {
	out := execute(t, "analyses")
	assert.Contains(t, out, "PeakMagnitude\n")
	assert.Contains(t, out, "MembraneTest\n")
}

func TestSynthAndInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthetic.edf")
	out := execute(t, "synth", "--rate", "1000", "--sweeps", "2", "--duration", "300", "--amplitude", "-50", "--range", "32767", path)
	assert.Contains(t, out, "wrote 2 sweeps of 300 samples")

	out = execute(t, "inspect", path)
	assert.Contains(t, out, "sample rate: 1000 Hz")
	assert.Contains(t, out, "sweeps:      2 x 300 samples")
	assert.Contains(t, out, "-50.000")
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))

	execute(t, "synth", "--rate", "1000", "--sweeps", "2", "--amplitude", "-50", "--at", "150",
		filepath.Join(data, "24n11001.edf"))
	execute(t, "synth", "--rate", "2000", "--sweeps", "2", "--amplitude", "-20", "--at", "150",
		filepath.Join(data, "24n11002.edf"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "celldex.csv"), []byte(
		"Day,Slice,Cell,evoked/first\n24n11,1,1,1\n24n11,1,2,2\n24n11,2,1,9\n"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pincer.yaml"), []byte(`
source: data
index: celldex.csv
analyses:
  - group: evoked
    name: PeakMagnitude
    options:
      region: [100, 200]
      baseline: [0, 50]
output:
  csv: out/results.csv
  sqlite: out/results.sqlite
log:
  level: error
`), 0o644))

	out := execute(t, "run", filepath.Join(dir, "pincer.yaml"))
	assert.Contains(t, out, "analysed 2 recordings, 1 failed, 2 values")

	f, err := os.Open(filepath.Join(dir, "out", "results.csv"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Day", "Slice", "Cell", "evoked/first: Peak 0 Magnitude"}, records[0])

	for i, want := range []float64{50, 20} {
		got, err := strconv.ParseFloat(records[i+1][3], 64)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 0.05)
	}

	db, err := store.Open(filepath.Join(dir, "out", "results.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runs, err := db.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Contains(t, runs[0].Config, "PeakMagnitude")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--strict", filepath.Join(dir, "pincer.yaml")})
	assert.Error(t, cmd.Execute())
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/pincer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
source: data
index: celldex.csv
naming: {width: 4}
analyses:
  - group: rheo
    name: APThreshold
  - group: ppr
    name: PairedPulse
    options:
      baseline1: [0, 10]
      pulse1: [20, 40]
      pulse2: [50, 70]
      baseline2: [100, 110]
      sealtest: [120, 140]
secondary:
  - name: Mean Threshold
    columns:
      - {trace: rheo/ramp1, label: AP Threshold 0 (mV)}
      - {trace: rheo/ramp2, label: AP Threshold 0 (mV)}
output:
  csv: out/results.csv
log:
  max_age_days: 14
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pincer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data"), cfg.Source)
	assert.Equal(t, filepath.Join(dir, "celldex.csv"), cfg.Index)
	assert.Equal(t, filepath.Join(dir, "out", "results.csv"), cfg.Output.CSV)
	assert.Empty(t, cfg.Output.SQLite)

	// Defaults survive a partial override.
	assert.Equal(t, 4, cfg.Naming.Width)
	assert.Equal(t, ".edf", cfg.Naming.Ext)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
	assert.Equal(t, 14, cfg.Log.MaxAgeDays)

	require.Len(t, cfg.Analyses, 2)
	assert.Equal(t, "rheo", cfg.Analyses[0].Group)
	assert.Equal(t, "APThreshold", cfg.Analyses[0].Name)

	a, err := cfg.Analyses[1].Build()
	require.NoError(t, err)
	assert.NotNil(t, a)

	require.Len(t, cfg.Secondary, 1)
	assert.Equal(t, "rheo/ramp2", cfg.Secondary[0].Columns[1].Trace)
}

func TestParseUnknownField(t *testing.T) {
	_, err := config.Parse([]byte("sorce: data\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Parse([]byte("analyses: [{group: a}]\nsecondary: [{name: x}]\nlog: {max_age_days: -1}\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, msg := range []string{
		"source is required",
		"index is required",
		"analyses[0]: name is required",
		"secondary[0]: at least one column is required",
		"log max_age_days must be >= 0, got -1",
	} {
		assert.ErrorContains(t, err, msg)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Defaults()
	cfg.ApplyEnv([]string{
		"PINCER_SOURCE=/data",
		"PINCER_LOG_LEVEL=debug",
		"PINCER_OUTPUT_SQLITE=",
		"HOME=/root",
	})
	assert.Equal(t, "/data", cfg.Source)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Output.SQLite)
}

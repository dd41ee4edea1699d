// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package analysis_test

import (
	"testing"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func node(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &n))
	// Unwrap the document node.
	return n.Content[0]
}

func TestNames(t *testing.T) {
	names := analysis.Names()
	for _, name := range []string{
		"APThreshold", "AreaUnderCurve", "CRACM", "CountThresholdEvents", "CurrentInducedAP",
		"MembraneTest", "Multi", "PairedPulse", "PeakMagnitude", "Peaks", "Suppress",
	} {
		assert.Contains(t, names, name)
	}
	assert.IsIncreasing(t, names)
}

func TestCreate(t *testing.T) {
	sweep0 := constant(300, 0)
	sweep0[150] = -50
	src := &pincer.MemorySource{Rate: 1000, Sweeps: [][]float64{sweep0, constant(300, 0)}}

	a, err := analysis.Create("PeakMagnitude", node(t, `
region: [100, 200]
baseline: [0, 50]
`))
	require.NoError(t, err)

	results, err := a.Run(src)
	require.NoError(t, err)
	peak, _ := results.Float("Peak 0 Magnitude")
	assert.Equal(t, 25.0, peak)
}

func TestCreateDefaults(t *testing.T) {
	a, err := analysis.Create("CountThresholdEvents", nil)
	require.NoError(t, err)

	count, ok := a.(*analysis.CountThresholdEvents)
	require.True(t, ok)
	assert.Equal(t, pincer.Down, count.Direction)
	assert.Equal(t, 1.0, count.MinEventWidth)
	assert.Nil(t, count.Region)
}

func TestCreateErrors(t *testing.T) {
	_, err := analysis.Create("Nope", nil)
	assert.ErrorIs(t, err, analysis.ErrUnknownAnalysis)

	_, err = analysis.Create("PeakMagnitude", node(t, "regoin: [0, 10]"))
	assert.Error(t, err)

	_, err = analysis.Create("PeakMagnitude", node(t, "direction: 2"))
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)

	_, err = analysis.Create("PeakMagnitude", node(t, "region: [0, 10, 20]"))
	assert.ErrorIs(t, err, pincer.ErrInvalidRange)

	_, err = analysis.Create("PeakMagnitude", node(t, "reducer: median"))
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)

	_, err = analysis.Create("MembraneTest", node(t, "region: [20, 60]"))
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)
}

func TestRegion(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{"region: [110, 155]", "ROI [110, 155) in ms"},
		{"region: [[450, 480], [0, 100], [90, 120]]", "ROI [0, 120) [450, 480) in ms"},
		{"region: {unit: s, ranges: [[0, 2]]}", "ROI [0, 2) in s"},
		{"region: {unit: us, ranges: [5, 10]}", "ROI [5, 10) in us"},
	}

	for _, tt := range tests {
		var opts struct {
			Region analysis.Region `yaml:"region"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &opts), tt.doc)
		require.NotNil(t, opts.Region.ROI(), tt.doc)
		assert.Equal(t, tt.want, opts.Region.ROI().String(), tt.doc)
	}

	var opts struct {
		Region analysis.Region `yaml:"region"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("region: null"), &opts))
	assert.Nil(t, opts.Region.ROI())

	for _, doc := range []string{"region: 5", "region: [[1, 2, 3]]", "region: [a, b]", "region: [10, 5]", "region: {unit: hours, ranges: [0, 1]}"} {
		assert.Error(t, yaml.Unmarshal([]byte(doc), &opts), doc)
	}

	err := yaml.Unmarshal([]byte("region: {units: s, ranges: [0, 2]}"), &opts)
	assert.ErrorIs(t, err, pincer.ErrInvalidRange)
	assert.ErrorContains(t, err, `unknown key "units"`)
}

func TestCreateComposite(t *testing.T) {
	sweep := constant(100, 0)
	sweep[50] = 4
	src := &pincer.MemorySource{Rate: 1000, Sweeps: [][]float64{sweep}}

	a, err := analysis.Create("Suppress", node(t, `
analysis:
  name: Multi
  options:
    analyses:
      - name: PeakMagnitude
        options: {direction: 1}
      - name: AreaUnderCurve
        options: {direction: 1}
keywords: [Peak]
`))
	require.NoError(t, err)

	results, err := a.Run(src)
	require.NoError(t, err)
	assert.Equal(t, "{Sum AUC 0 ms*units: 4}", results.String())

	_, err = analysis.Create("Multi", node(t, "analyses: []"))
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)

	_, err = analysis.Create("Multi", node(t, "analyses: [{name: Bogus}]"))
	assert.ErrorIs(t, err, analysis.ErrUnknownAnalysis)
}

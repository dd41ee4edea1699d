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
	"math"
	"testing"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepResponse simulates a whole cell voltage step at 10 kHz. The step starts at
// 20 ms and ends at 60 ms.
func stepResponse(step, hold, ra, rm, cm float64) []float64 {
	const rate = 10000
	rpar := ra * rm / (ra + rm)   // GOhm
	tau := cm * 1e-12 * rpar * 1e9 // s
	peak := step / ra              // pA
	steady := step / (ra + rm)     // pA

	s := constant(800, hold)
	for k := 200; k < 600; k++ {
		x := float64(k-200) / (tau * rate)
		s[k] = hold + steady + peak*math.Exp(-x)
	}
	return s
}

func TestMembraneTest(t *testing.T) {
	src := &pincer.MemorySource{Rate: 10000, Sweeps: [][]float64{
		stepResponse(10, -50, 0.02, 0.5, 100),
		stepResponse(10, -50, 0.02, 0.5, 100),
	}}

	a, err := analysis.NewMembraneTest(analysis.MembraneTest{
		Baseline: *span(t, 0, 10),
		Region:   *span(t, 20, 60),
		StepSize: 10,
	})
	require.NoError(t, err)

	passive, err := a.PerSweep(src)
	require.NoError(t, err)
	require.Len(t, passive, 2)

	// Leak correction scales both resistances by 1 + Ra/Rm.
	p := passive[0]
	assert.InDelta(t, -50.0, p.Holding, 1e-9)
	assert.InEpsilon(t, 20.0*1.04, p.Ra, 0.01)
	assert.InEpsilon(t, 500.0*1.04, p.Rm, 0.01)
	assert.InEpsilon(t, 100.0/(1.04*1.04), p.Cm, 0.01)
	assert.Greater(t, p.R2, 0.999)

	results, err := a.Run(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cm 0 (pF)", "Rm 0 (MOhm)", "Ra 0 (MOhm)", "Holding 0 (pA)", "Fit R2 0"}, results.Labels())
	ra, _ := results.Float("Ra 0 (MOhm)")
	assert.InEpsilon(t, p.Ra, ra, 1e-9)
}

func TestMembraneTestNegativeStep(t *testing.T) {
	src := &pincer.MemorySource{Rate: 10000, Sweeps: [][]float64{stepResponse(-10, 20, 0.01, 1, 50)}}

	a, err := analysis.NewMembraneTest(analysis.MembraneTest{
		Baseline: *span(t, 0, 10),
		Region:   *span(t, 20, 60),
		StepSize: -10,
	})
	require.NoError(t, err)

	passive, err := a.PerSweep(src)
	require.NoError(t, err)
	assert.InEpsilon(t, 10.0*1.01, passive[0].Ra, 0.01)
	assert.InEpsilon(t, 1000.0*1.01, passive[0].Rm, 0.01)
}

func TestMembraneTestFlatSweep(t *testing.T) {
	src := &pincer.MemorySource{Rate: 10000, Sweeps: [][]float64{constant(800, -50)}}

	a, err := analysis.NewMembraneTest(analysis.MembraneTest{
		Baseline: *span(t, 0, 10),
		Region:   *span(t, 20, 60),
		StepSize: 5,
	})
	require.NoError(t, err)

	results, err := a.Run(src)
	require.NoError(t, err)

	cm, _ := results.Float("Cm 0 (pF)")
	assert.True(t, math.IsNaN(cm))
	hold, _ := results.Float("Holding 0 (pA)")
	assert.Equal(t, -50.0, hold)

	_, err = analysis.NewMembraneTest(analysis.MembraneTest{
		Baseline: *span(t, 0, 10),
		Region:   *span(t, 20, 60),
	})
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)
}

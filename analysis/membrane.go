// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/OpenPSG/pincer"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var errNoFit = errors.New("transient cannot be fitted")

// MembraneTest derives passive cell properties from the capacitive transient
// of a voltage step. The decay of the transient is fitted with m*exp(-t*x)
// between the 80% and 10% points, and the fit gives access resistance (Ra),
// membrane resistance (Rm) and capacitance (Cm). Sweeps whose transient cannot
// be fitted report NaN.
type MembraneTest struct {
	Baseline pincer.ROI     // Holding current before the step
	Region   pincer.ROI     // Step, from onset to steady state
	StepSize float64        // Step amplitude in mV
	Binning  int            // Sweeps per bin, 0 for a single bin
	Reducer  pincer.Reducer // Bin reduction, nil for the mean
}

// NewMembraneTest validates the parameters and returns the analysis.
func NewMembraneTest(a MembraneTest) (*MembraneTest, error) {
	c := Common{Region: &a.Region, Baseline: &a.Baseline, Direction: pincer.Up, Binning: a.Binning}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if a.StepSize == 0 || math.IsNaN(a.StepSize) || math.IsInf(a.StepSize, 0) {
		return nil, fmt.Errorf("%w: step size must be a non-zero number of mV", pincer.ErrInvalidParameter)
	}
	if a.Reducer == nil {
		a.Reducer = pincer.Mean
	}
	return &a, nil
}

// Passive holds the cell properties derived from one sweep.
type Passive struct {
	Cm      float64 // Capacitance in pF
	Rm      float64 // Membrane resistance in MOhm
	Ra      float64 // Access resistance in MOhm
	Holding float64 // Holding current in pA
	R2      float64 // Coefficient of determination of the fit
}

// PerSweep returns the passive properties of every sweep.
func (a *MembraneTest) PerSweep(src pincer.Source) ([]Passive, error) {
	rate := src.SampleRate()
	baseline, err := a.Baseline.Resolve(rate)
	if err != nil {
		return nil, fmt.Errorf("error resolving baseline: %w", err)
	}
	region, err := a.Region.Resolve(rate)
	if err != nil {
		return nil, fmt.Errorf("error resolving region: %w", err)
	}

	out := make([]Passive, 0, src.SweepCount())
	for i := 0; i < src.SweepCount(); i++ {
		trace, err := src.Sweep(i)
		if err != nil {
			return nil, fmt.Errorf("error reading sweep %d: %w", i, err)
		}

		hold, err := baseline.Filter(trace)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		if len(hold) == 0 {
			return nil, fmt.Errorf("sweep %d: %w", i, pincer.ErrEmptyRegion)
		}
		step, err := region.Filter(trace)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}

		p := Passive{Holding: pincer.Mean(hold)}
		if err := a.fit(&p, step, rate); err != nil {
			p.Cm, p.Rm, p.Ra, p.R2 = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		}
		out = append(out, p)
	}
	return out, nil
}

// Run implements Analysis.
func (a *MembraneTest) Run(src pincer.Source) (*pincer.Results, error) {
	passive, err := a.PerSweep(src)
	if err != nil {
		return nil, err
	}

	columns := []struct {
		format string
		value  func(Passive) float64
	}{
		{"Cm %d (pF)", func(p Passive) float64 { return p.Cm }},
		{"Rm %d (MOhm)", func(p Passive) float64 { return p.Rm }},
		{"Ra %d (MOhm)", func(p Passive) float64 { return p.Ra }},
		{"Holding %d (pA)", func(p Passive) float64 { return p.Holding }},
		{"Fit R2 %d", func(p Passive) float64 { return p.R2 }},
	}

	results := pincer.NewResults()
	values := make([]float64, len(passive))
	for _, col := range columns {
		for i, p := range passive {
			values[i] = col.value(p)
		}
		bins, err := pincer.Bin(values, a.Binning, a.Reducer)
		if err != nil {
			return nil, err
		}
		labelled(results, col.format, bins)
	}
	return results, nil
}

// fit fills in Cm, Rm, Ra and R2 from the step region of one sweep.
func (a *MembraneTest) fit(p *Passive, step []float64, rate float64) error {
	// Negative steps produce downward transients.
	sign := 1.0
	if a.StepSize < 0 {
		sign = -1
	}
	stepSize := math.Abs(a.StepSize)
	hold := p.Holding * sign

	if len(step) == 0 {
		return errNoFit
	}
	decay := pincer.Scale(step, pincer.Direction(sign))
	decay = decay[argmax(decay):]

	tail := decay[len(decay)-len(decay)/5:]
	if len(tail) == 0 {
		return errNoFit
	}
	steady := pincer.Mean(tail)

	y := make([]float64, len(decay))
	for i, v := range decay {
		y[i] = v - steady
	}

	peak := y[0]
	if peak <= 0 {
		return errNoFit
	}
	i80 := firstAtOrBelow(y, 0.8*peak)
	i10 := firstAtOrBelow(y, 0.1*peak)
	if i80 < 0 || i10-i80 < 3 {
		return errNoFit
	}

	m, t, r2, err := fitExponential(y[i80:i10], float64(i80))
	if err != nil {
		return err
	}

	// mV / pA = GOhm
	ra := stepSize / m
	rm := stepSize/(steady-hold) - ra
	if t <= 0 || ra <= 0 || rm <= 0 {
		return errNoFit
	}
	tau := 1 / (t * rate)

	effective := 1 / (1/ra + 1/rm)
	cm := tau / effective * 1000

	correction := 1 + ra/rm
	p.Ra = ra * correction * 1000
	p.Rm = rm * correction * 1000
	p.Cm = cm / (correction * correction)
	p.R2 = r2
	return nil
}

// fitExponential fits m*exp(-t*x) to y sampled at x = offset, offset+1, ...
// A log-linear regression seeds a Nelder-Mead least squares refinement.
func fitExponential(y []float64, offset float64) (m, t, r2 float64, err error) {
	xs := make([]float64, len(y))
	ly := make([]float64, len(y))
	for i, v := range y {
		if v <= 0 {
			return 0, 0, 0, errNoFit
		}
		xs[i] = offset + float64(i)
		ly[i] = math.Log(v)
	}
	intercept, slope := stat.LinearRegression(xs, ly, nil, false)
	if !(slope < 0) {
		return 0, 0, 0, errNoFit
	}

	// Parameters are optimised in log space to keep both positive.
	sse := func(p []float64) float64 {
		m, t := math.Exp(p[0]), math.Exp(p[1])
		var s float64
		for i, v := range y {
			d := v - m*math.Exp(-t*(offset+float64(i)))
			s += d * d
		}
		return s
	}

	res, err := optimize.Minimize(optimize.Problem{Func: sse},
		[]float64{intercept, math.Log(-slope)}, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", errNoFit, err)
	}

	mean := pincer.Mean(y)
	var total float64
	for _, v := range y {
		total += (v - mean) * (v - mean)
	}
	if total == 0 {
		return 0, 0, 0, errNoFit
	}

	return math.Exp(res.X[0]), math.Exp(res.X[1]), 1 - res.F/total, nil
}

func firstAtOrBelow(y []float64, level float64) int {
	for i, v := range y {
		if v <= level {
			return i
		}
	}
	return -1
}

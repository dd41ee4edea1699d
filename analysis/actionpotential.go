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
	"fmt"
	"math"

	"github.com/OpenPSG/pincer"
)

// APThreshold finds the action potential threshold of current ramp recordings.
// The threshold is the voltage where the second derivative peaks ahead of the
// first action potential. Sweeps without an action potential are skipped.
type APThreshold struct {
	Common
	Threshold float64 // Level an action potential must reach in mV
}

// NewAPThreshold validates the parameters and returns the analysis.
func NewAPThreshold(a APThreshold) (*APThreshold, error) {
	if err := a.Common.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(a.Threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", pincer.ErrInvalidParameter)
	}
	return &a, nil
}

// Run implements Analysis. Labels are "AP Threshold <bin> (mV)".
func (a *APThreshold) Run(src pincer.Source) (*pincer.Results, error) {
	var thresholds []float64
	err := a.sweeps(src, func(_ *stage, _ int, trace []float64) error {
		events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: a.Threshold})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		onset := trace[:events[0]+1]
		jerk := gradient(gradient(onset))
		thresholds = append(thresholds, onset[argmax(jerk)])
		return nil
	})
	if err != nil {
		return nil, err
	}

	bins, err := a.bin(thresholds)
	if err != nil {
		return nil, err
	}

	results := pincer.NewResults()
	labelled(results, "AP Threshold %d (mV)", bins)
	return results, nil
}

// CurrentInducedAP characterises action potentials evoked by current injection.
// It reports the resting membrane potential, the action potential count and the
// peak and height of the first action potential.
type CurrentInducedAP struct {
	Resting   pincer.ROI     // Region measured for the resting membrane potential
	Region    *pincer.ROI    // Region searched for action potentials, nil for the whole sweep
	Threshold float64        // Level an action potential must reach in mV
	Binning   int            // Sweeps per bin, 0 for a single bin
	Reducer   pincer.Reducer // Bin reduction, nil for the mean
}

// NewCurrentInducedAP validates the parameters and returns the analysis.
func NewCurrentInducedAP(a CurrentInducedAP) (*CurrentInducedAP, error) {
	c := Common{Region: a.Region, Baseline: &a.Resting, Direction: pincer.Up, Binning: a.Binning}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(a.Threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", pincer.ErrInvalidParameter)
	}
	if a.Reducer == nil {
		a.Reducer = pincer.Mean
	}
	return &a, nil
}

// Run implements Analysis. Peak and height bins only cover sweeps with an action potential.
func (a *CurrentInducedAP) Run(src pincer.Source) (*pincer.Results, error) {
	rate := src.SampleRate()
	resting, err := a.Resting.Resolve(rate)
	if err != nil {
		return nil, fmt.Errorf("error resolving resting region: %w", err)
	}
	var region *pincer.SampleROI
	if a.Region != nil {
		r, err := a.Region.Resolve(rate)
		if err != nil {
			return nil, fmt.Errorf("error resolving region: %w", err)
		}
		region = &r
	}

	var rmps, counts, peaks, heights []float64
	for i := 0; i < src.SweepCount(); i++ {
		trace, err := src.Sweep(i)
		if err != nil {
			return nil, fmt.Errorf("error reading sweep %d: %w", i, err)
		}

		rest, err := resting.Filter(trace)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		if len(rest) == 0 {
			return nil, fmt.Errorf("sweep %d: %w", i, pincer.ErrEmptyRegion)
		}
		rmp := pincer.Mean(rest)

		if region != nil {
			if trace, err = region.Filter(trace); err != nil {
				return nil, fmt.Errorf("sweep %d: %w", i, err)
			}
		}

		events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: a.Threshold})
		if err != nil {
			return nil, err
		}

		rmps = append(rmps, rmp)
		counts = append(counts, float64(len(events)))
		if len(events) > 0 {
			peak := trace[events[0]]
			peaks = append(peaks, peak)
			heights = append(heights, peak-rmp)
		}
	}

	results := pincer.NewResults()
	for _, out := range []struct {
		format string
		values []float64
	}{
		{"Resting Membrane Potential %d (mV)", rmps},
		{"Action Potential Count %d", counts},
		{"First Action Potential Peak %d (mV)", peaks},
		{"First Action Potential Height %d (mV)", heights},
	} {
		bins, err := pincer.Bin(out.values, a.Binning, a.Reducer)
		if err != nil {
			return nil, err
		}
		labelled(results, out.format, bins)
	}
	return results, nil
}

// gradient returns the discrete derivative using central differences in the
// interior and one sided differences at the ends.
func gradient(y []float64) []float64 {
	g := make([]float64, len(y))
	n := len(y)
	if n < 2 {
		return g
	}
	g[0] = y[1] - y[0]
	g[n-1] = y[n-1] - y[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (y[i+1] - y[i-1]) / 2
	}
	return g
}

// argmax returns the index of the first maximum, -1 for no values.
func argmax(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v > values[idx] {
			idx = i
		}
	}
	return idx
}

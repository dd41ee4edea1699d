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

// CRACMConfig describes a light pulse recording from a circuit mapping experiment.
type CRACMConfig struct {
	Baseline       pincer.ROI   // Baseline for the area under the curve
	PulsesPerSweep int          // Light pulses delivered in every sweep
	Threshold      float64      // Action potential threshold
	MinEventWidth  float64      // Minimum action potential width in milliseconds
	Pulses         []pincer.ROI // Optional response window of each pulse, for fidelity
}

// CRACM reports the area under the curve, the action potential count and the
// number of action potentials per light pulse. When pulse windows are given it
// also reports, per pulse, the fraction of sweeps with at least one action potential.
type CRACM struct {
	auc      *AreaUnderCurve
	count    *CountThresholdEvents
	pulses   []*CountThresholdEvents
	perSweep int
}

// NewCRACM validates the configuration and returns the analysis.
func NewCRACM(cfg CRACMConfig) (*CRACM, error) {
	if cfg.PulsesPerSweep <= 0 {
		return nil, fmt.Errorf("%w: pulses per sweep must be > 0, got %d", pincer.ErrInvalidParameter, cfg.PulsesPerSweep)
	}

	auc, err := NewAreaUnderCurve(Common{Baseline: &cfg.Baseline, Direction: pincer.Up})
	if err != nil {
		return nil, err
	}

	counter := func(region *pincer.ROI) (*CountThresholdEvents, error) {
		return NewCountThresholdEvents(CountThresholdEvents{
			Common:        Common{Region: region, Direction: pincer.Up, Reducer: pincer.Sum},
			Threshold:     cfg.Threshold,
			MinEventWidth: cfg.MinEventWidth,
		})
	}

	count, err := counter(nil)
	if err != nil {
		return nil, err
	}

	a := &CRACM{auc: auc, count: count, perSweep: cfg.PulsesPerSweep}
	for k := range cfg.Pulses {
		pulse, err := counter(&cfg.Pulses[k])
		if err != nil {
			return nil, fmt.Errorf("pulse %d: %w", k, err)
		}
		a.pulses = append(a.pulses, pulse)
	}
	return a, nil
}

// Run implements Analysis.
func (a *CRACM) Run(src pincer.Source) (*pincer.Results, error) {
	results, err := a.auc.Run(src)
	if err != nil {
		return nil, err
	}
	counts, err := a.count.Run(src)
	if err != nil {
		return nil, err
	}
	results.Merge(counts)

	total, _ := counts.Float("Sum Events in Bin 0")
	pulses := src.SweepCount() * a.perSweep
	perPulse := math.NaN()
	if pulses > 0 {
		perPulse = total / float64(pulses)
	}
	results.SetFloat("Action Potentials per Light Pulse", perPulse)

	for k, pulse := range a.pulses {
		perSweep, err := pulse.PerSweep(src)
		if err != nil {
			return nil, fmt.Errorf("pulse %d: %w", k, err)
		}
		results.Setf(fidelity(perSweep), "Fidelity Pulse %d", k)
	}
	return results, nil
}

// fidelity is the fraction of sweeps with at least one event, NaN without sweeps.
func fidelity(counts []float64) float64 {
	if len(counts) == 0 {
		return math.NaN()
	}
	var hits int
	for _, c := range counts {
		if c > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(counts))
}

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

// PeakMagnitude reports the maximum of the prepared region of each sweep.
type PeakMagnitude struct {
	Common
}

// NewPeakMagnitude validates the parameters and returns the analysis.
func NewPeakMagnitude(c Common) (*PeakMagnitude, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &PeakMagnitude{Common: c}, nil
}

// PerSweep returns the peak of every sweep, NaN where the region is empty.
func (a *PeakMagnitude) PerSweep(src pincer.Source) ([]float64, error) {
	return a.collect(src, func(_ *stage, trace []float64) (float64, error) {
		return pincer.Max(trace), nil
	})
}

// Run implements Analysis. Labels are "Peak <bin> Magnitude".
func (a *PeakMagnitude) Run(src pincer.Source) (*pincer.Results, error) {
	peaks, err := a.PerSweep(src)
	if err != nil {
		return nil, err
	}
	bins, err := a.bin(peaks)
	if err != nil {
		return nil, err
	}

	results := pincer.NewResults()
	labelled(results, "Peak %d Magnitude", bins)
	return results, nil
}

// AreaUnderCurve integrates the prepared region of each sweep.
// Areas are in milliseconds times the trace unit.
type AreaUnderCurve struct {
	Common
}

// NewAreaUnderCurve validates the parameters and returns the analysis.
func NewAreaUnderCurve(c Common) (*AreaUnderCurve, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &AreaUnderCurve{Common: c}, nil
}

// PerSweep returns the raw sample sum of every sweep, NaN where the region is empty.
func (a *AreaUnderCurve) PerSweep(src pincer.Source) ([]float64, error) {
	return a.collect(src, func(_ *stage, trace []float64) (float64, error) {
		if len(trace) == 0 {
			return math.NaN(), nil
		}
		return pincer.Sum(trace), nil
	})
}

// Run implements Analysis. Labels are "Sum AUC <bin> ms*units".
func (a *AreaUnderCurve) Run(src pincer.Source) (*pincer.Results, error) {
	sums, err := a.PerSweep(src)
	if err != nil {
		return nil, err
	}
	bins, err := a.bin(sums)
	if err != nil {
		return nil, err
	}

	samplesPerMs := src.SampleRate() / 1000
	results := pincer.NewResults()
	for i, v := range bins {
		results.Setf(v/samplesPerMs, "Sum AUC %d ms*units", i)
	}
	return results, nil
}

// CountThresholdEvents counts threshold crossing events in the prepared region of
// each sweep. The direction is applied by the pipeline, so detection always looks
// for upward events in the prepared trace.
type CountThresholdEvents struct {
	Common
	Threshold     float64 // Level events must reach
	MinEventWidth float64 // Minimum event width in milliseconds
	Prominence    float64 // Minimum prominence, 0 disables the filter
}

// NewCountThresholdEvents validates the parameters and returns the analysis.
func NewCountThresholdEvents(a CountThresholdEvents) (*CountThresholdEvents, error) {
	if err := a.Common.Validate(); err != nil {
		return nil, err
	}
	opts := pincer.EventOptions{Threshold: a.Threshold, MinLength: a.MinEventWidth, Prominence: a.Prominence}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Events returns the event indices of every sweep, relative to the prepared region.
func (a *CountThresholdEvents) Events(src pincer.Source) ([][]int, error) {
	var events [][]int
	err := a.sweeps(src, func(st *stage, _ int, trace []float64) error {
		found, err := pincer.DetectEvents(trace, pincer.EventOptions{
			Threshold:  a.Threshold,
			MinLength:  a.MinEventWidth * st.rate / 1000,
			Prominence: a.Prominence,
		})
		if err != nil {
			return err
		}
		events = append(events, found)
		return nil
	})
	return events, err
}

// PerSweep returns the event count of every sweep.
func (a *CountThresholdEvents) PerSweep(src pincer.Source) ([]float64, error) {
	events, err := a.Events(src)
	if err != nil {
		return nil, err
	}
	counts := make([]float64, len(events))
	for i, e := range events {
		counts[i] = float64(len(e))
	}
	return counts, nil
}

// Run implements Analysis. Labels are "Sum Events in Bin <bin>".
func (a *CountThresholdEvents) Run(src pincer.Source) (*pincer.Results, error) {
	counts, err := a.PerSweep(src)
	if err != nil {
		return nil, err
	}
	bins, err := a.bin(counts)
	if err != nil {
		return nil, fmt.Errorf("error binning event counts: %w", err)
	}

	results := pincer.NewResults()
	labelled(results, "Sum Events in Bin %d", bins)
	return results, nil
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package analysis contains the analysis protocols run against sweep recordings.
//
// Every protocol follows the same per-sweep pipeline: the configured regions are
// resolved at the recording's sample rate, each sweep is baselined, multiplied by
// the direction and filtered to the inspection region, a scalar is extracted, and
// the per-sweep scalars are binned into labelled results.
package analysis

import (
	"fmt"

	"github.com/OpenPSG/pincer"
)

// Analysis extracts labelled results from a recording.
type Analysis interface {
	Run(src pincer.Source) (*pincer.Results, error)
}

// Common holds the parameters shared by the basic protocols.
type Common struct {
	Region    *pincer.ROI      // Inspected region, nil for the whole sweep
	Baseline  *pincer.ROI      // Baseline region, nil to skip baselining
	Direction pincer.Direction // Polarity applied after baselining
	Binning   int              // Sweeps per bin, 0 for a single bin
	Reducer   pincer.Reducer   // Bin reduction, nil for the mean
}

// Validate checks every parameter is in domain.
func (c Common) Validate() error {
	if c.Region != nil && c.Region.IsZero() {
		return fmt.Errorf("%w: region is empty", pincer.ErrInvalidRange)
	}
	if c.Baseline != nil && c.Baseline.IsZero() {
		return fmt.Errorf("%w: baseline is empty", pincer.ErrInvalidRange)
	}
	if err := c.Direction.Validate(); err != nil {
		return err
	}
	if c.Binning < 0 {
		return fmt.Errorf("%w: binning must be >= 0, got %d", pincer.ErrInvalidParameter, c.Binning)
	}
	return nil
}

func (c Common) reducer() pincer.Reducer {
	if c.Reducer == nil {
		return pincer.Mean
	}
	return c.Reducer
}

// bin reduces per-sweep values with the configured binning.
func (c Common) bin(values []float64) ([]float64, error) {
	return pincer.Bin(values, c.Binning, c.reducer())
}

// stage is the per-sweep pipeline with its regions resolved for one recording.
type stage struct {
	rate      float64
	region    *pincer.SampleROI
	baseline  *pincer.SampleROI
	direction pincer.Direction
}

func (c Common) resolve(rate float64) (*stage, error) {
	st := &stage{rate: rate, direction: c.Direction}
	if c.Region != nil {
		region, err := c.Region.Resolve(rate)
		if err != nil {
			return nil, fmt.Errorf("error resolving region: %w", err)
		}
		st.region = &region
	}
	if c.Baseline != nil {
		baseline, err := c.Baseline.Resolve(rate)
		if err != nil {
			return nil, fmt.Errorf("error resolving baseline: %w", err)
		}
		st.baseline = &baseline
	}
	return st, nil
}

// prepare baselines, flips and filters one sweep. It returns the prepared trace and
// the integer part of the baseline level (0 without a baseline region).
func (st *stage) prepare(sweep []float64) ([]float64, int64, error) {
	trace := sweep
	var level int64
	if st.baseline != nil {
		var err error
		if trace, level, err = pincer.Baseline(trace, *st.baseline); err != nil {
			return nil, 0, err
		}
	}

	trace = pincer.Scale(trace, st.direction)

	if st.region != nil {
		filtered, err := st.region.Filter(trace)
		if err != nil {
			return nil, 0, fmt.Errorf("error filtering region: %w", err)
		}
		trace = filtered
	}
	return trace, level, nil
}

// sweeps runs the pipeline over every sweep of src and hands each prepared trace to fn.
func (c Common) sweeps(src pincer.Source, fn func(st *stage, i int, trace []float64) error) error {
	st, err := c.resolve(src.SampleRate())
	if err != nil {
		return err
	}

	for i := 0; i < src.SweepCount(); i++ {
		sweep, err := src.Sweep(i)
		if err != nil {
			return fmt.Errorf("error reading sweep %d: %w", i, err)
		}
		trace, _, err := st.prepare(sweep)
		if err != nil {
			return fmt.Errorf("sweep %d: %w", i, err)
		}
		if err := fn(st, i, trace); err != nil {
			return fmt.Errorf("sweep %d: %w", i, err)
		}
	}
	return nil
}

// collect runs the pipeline and gathers one scalar per sweep.
func (c Common) collect(src pincer.Source, scalar func(st *stage, trace []float64) (float64, error)) ([]float64, error) {
	values := make([]float64, 0, src.SweepCount())
	err := c.sweeps(src, func(st *stage, _ int, trace []float64) error {
		v, err := scalar(st, trace)
		if err != nil {
			return err
		}
		values = append(values, v)
		return nil
	})
	return values, err
}

// labelled stores bins under a label formatted with the bin index.
func labelled(results *pincer.Results, format string, bins []float64) {
	for i, v := range bins {
		results.Setf(v, format, i)
	}
}

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
	"strings"

	"github.com/OpenPSG/pincer"
)

// Peaks reports the peak of several regions for every sweep without binning.
type Peaks struct {
	Baseline  *pincer.ROI
	Regions   []pincer.ROI
	Direction pincer.Direction
}

// NewPeaks validates the parameters and returns the analysis.
func NewPeaks(a Peaks) (*Peaks, error) {
	if len(a.Regions) == 0 {
		return nil, fmt.Errorf("%w: at least one region is required", pincer.ErrInvalidParameter)
	}
	for r := range a.Regions {
		c := Common{Region: &a.Regions[r], Baseline: a.Baseline, Direction: a.Direction}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("region %d: %w", r, err)
		}
	}
	return &a, nil
}

// Run implements Analysis. Labels are "Peak <region> sweep <sweep>".
func (a *Peaks) Run(src pincer.Source) (*pincer.Results, error) {
	results := pincer.NewResults()
	for r := range a.Regions {
		peak := PeakMagnitude{Common{Region: &a.Regions[r], Baseline: a.Baseline, Direction: a.Direction}}
		values, err := peak.PerSweep(src)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", r, err)
		}
		for s, v := range values {
			results.Setf(v, "Peak %d sweep %d", r, s)
		}
	}
	return results, nil
}

// Multi runs several analyses on the same recording and merges their results.
// Later analyses win on label collisions.
type Multi []Analysis

// Run implements Analysis.
func (m Multi) Run(src pincer.Source) (*pincer.Results, error) {
	results := pincer.NewResults()
	for i, a := range m {
		r, err := a.Run(src)
		if err != nil {
			return nil, fmt.Errorf("analysis %d: %w", i, err)
		}
		results.Merge(r)
	}
	return results, nil
}

// Suppress drops every result whose label contains one of the keywords.
type Suppress struct {
	Analysis Analysis
	Keywords []string
}

// Run implements Analysis.
func (s Suppress) Run(src pincer.Source) (*pincer.Results, error) {
	results, err := s.Analysis.Run(src)
	if err != nil {
		return nil, err
	}
	for _, label := range results.Labels() {
		for _, kw := range s.Keywords {
			if kw != "" && strings.Contains(label, kw) {
				results.Delete(label)
				break
			}
		}
	}
	return results, nil
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pincer

import (
	"fmt"
	"math"
)

// EventOptions configures DetectEvents.
type EventOptions struct {
	Threshold  float64   // Level the scaled trace must reach
	MinLength  float64   // Minimum region length in samples
	Prominence float64   // Minimum prominence on both sides, 0 disables the filter
	Direction  Direction // Polarity applied before thresholding, zero means Up
}

func (o EventOptions) direction() Direction {
	if o.Direction == 0 {
		return Up
	}
	return o.Direction
}

// Validate checks the options are in domain.
func (o EventOptions) Validate() error {
	if err := o.direction().Validate(); err != nil {
		return err
	}
	if o.MinLength < 0 || math.IsNaN(o.MinLength) {
		return fmt.Errorf("%w: minimum length must be >= 0, got %g", ErrInvalidParameter, o.MinLength)
	}
	if o.Prominence < 0 || math.IsNaN(o.Prominence) {
		return fmt.Errorf("%w: prominence must be >= 0, got %g", ErrInvalidParameter, o.Prominence)
	}
	if math.IsNaN(o.Threshold) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidParameter)
	}
	return nil
}

// DetectEvents returns the sample index of the maximum of every region where the
// direction-scaled trace is at or above the threshold for at least MinLength samples.
// Ties within a region resolve to the first occurrence.
func DetectEvents(trace []float64, opts EventOptions) ([]int, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	scaled := Scale(trace, opts.direction())

	mask := make([]bool, len(scaled))
	for i, v := range scaled {
		mask[i] = v >= opts.Threshold
	}

	var events []int
	for _, region := range Regions(Label(mask)) {
		if float64(region.Len()) < opts.MinLength {
			continue
		}
		peak := int(region.Start)
		for i := int(region.Start) + 1; i < int(region.End); i++ {
			if scaled[i] > scaled[peak] {
				peak = i
			}
		}
		events = append(events, peak)
	}

	if opts.Prominence > 0 {
		events = filterProminence(scaled, events, opts.Prominence)
	}
	return events, nil
}

// FilterProminence removes events whose prominence on either side is below the given
// level. The left side is measured back to the previous event kept in the current
// pass, the right side forward to the next candidate. Dropping an event changes the
// prominence of its neighbours, so the filter is reapplied to the surviving events
// until a pass removes nothing.
func FilterProminence(trace []float64, events []int, prominence float64) ([]int, error) {
	for _, e := range events {
		if e < 0 || e >= len(trace) {
			return nil, fmt.Errorf("%w: event at %d outside trace of %d samples", ErrOutOfBounds, e, len(trace))
		}
	}
	return filterProminence(trace, events, prominence), nil
}

func filterProminence(trace []float64, events []int, prominence float64) []int {
	surviving := append([]int(nil), events...)
	for {
		kept := surviving[:0:0]
		for i, e := range surviving {
			prev := 0
			if len(kept) > 0 {
				prev = kept[len(kept)-1]
			}
			next := len(trace) - 1
			if i < len(surviving)-1 {
				next = surviving[i+1]
			}

			left := trace[e] - minOf(trace[prev:e+1])
			right := trace[e] - minOf(trace[e:next+1])
			if min(left, right) >= prominence {
				kept = append(kept, e)
			}
		}

		if len(kept) == 0 {
			return nil
		}
		if len(kept) == len(surviving) {
			return kept
		}
		surviving = kept
	}
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

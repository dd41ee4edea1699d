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
	"strings"
)

// Unit is the unit tag of a region of interest.
type Unit string

const (
	Microseconds Unit = "us"
	Milliseconds Unit = "ms"
	Seconds      Unit = "s"
	Minutes      Unit = "min"
	// Samples only appears on a SampleROI, after resolution at a sample rate.
	Samples Unit = "samples"
)

// microseconds per unit
var unitScale = map[Unit]int64{
	Microseconds: 1,
	Milliseconds: 1_000,
	Seconds:      1_000_000,
	Minutes:      60_000_000,
}

// ParseUnit parses a time unit name. "sec" is accepted as an alias for seconds.
func ParseUnit(s string) (Unit, error) {
	switch u := strings.TrimSpace(s); u {
	case "us", "ms", "s", "min":
		return Unit(u), nil
	case "sec":
		return Seconds, nil
	default:
		return "", fmt.Errorf("%w: %q, use one of: us, ms, s, sec, min", ErrInvalidUnit, s)
	}
}

// Microseconds returns the number of microseconds in one unit.
func (u Unit) Microseconds() (int64, bool) {
	scale, ok := unitScale[u]
	return scale, ok
}

// Direction is the polarity applied to a trace before analysis.
type Direction int

const (
	// Up leaves the trace untouched.
	Up Direction = 1
	// Down flips the trace so downward deflections become peaks.
	Down Direction = -1
)

// Validate checks the direction is +1 or -1.
func (d Direction) Validate() error {
	if d != Up && d != Down {
		return fmt.Errorf("%w: direction must be 1 or -1, got %d", ErrInvalidParameter, d)
	}
	return nil
}

// Range is a half-open interval [Start, End) of sample indices or time units.
type Range struct {
	Start int64 // Inclusive start
	End   int64 // Exclusive end
}

// Len returns End - Start.
func (r Range) Len() int64 {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Source provides read-only access to the sweeps of a single recording.
type Source interface {
	// SweepCount returns the number of sweeps in the recording.
	SweepCount() int
	// SampleRate returns the sample rate in Hz.
	SampleRate() float64
	// Sweep returns the samples of the sweep at index i.
	Sweep(i int) ([]float64, error)
}

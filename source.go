// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pincer

import "fmt"

// MemorySource is a Source backed by in-memory sweeps.
type MemorySource struct {
	Rate   float64     // Sample rate in Hz
	Sweeps [][]float64 // Samples of each sweep
}

// SweepCount returns the number of sweeps.
func (m *MemorySource) SweepCount() int {
	return len(m.Sweeps)
}

// SampleRate returns the sample rate in Hz.
func (m *MemorySource) SampleRate() float64 {
	return m.Rate
}

// Sweep returns a copy of the sweep at index i.
func (m *MemorySource) Sweep(i int) ([]float64, error) {
	if i < 0 || i >= len(m.Sweeps) {
		return nil, fmt.Errorf("%w: sweep %d of %d", ErrOutOfBounds, i, len(m.Sweeps))
	}
	return append([]float64(nil), m.Sweeps[i]...), nil
}

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

	"github.com/OpenPSG/pincer"
)

// PairedPulseConfig describes a paired pulse protocol: two stimulations in close
// succession followed by a small voltage step used as a seal test.
type PairedPulseConfig struct {
	Baseline1 pincer.ROI // Baseline for both pulse responses
	Pulse1    pincer.ROI // Response to the first stimulation
	Pulse2    pincer.ROI // Response to the second stimulation
	Baseline2 pincer.ROI // Baseline for the seal test
	SealTest  pincer.ROI // Capacitive current of the seal test step
	Binning   int        // Sweeps per bin, applied after the ratio is taken
}

// PairedPulse reports the first peak, the paired pulse ratio and the seal test peak.
// All responses are downward.
type PairedPulse struct {
	pulse1, pulse2, seal *PeakMagnitude
	binning              int
}

// NewPairedPulse validates the configuration and returns the analysis.
func NewPairedPulse(cfg PairedPulseConfig) (*PairedPulse, error) {
	if cfg.Binning < 0 {
		return nil, fmt.Errorf("%w: binning must be >= 0, got %d", pincer.ErrInvalidParameter, cfg.Binning)
	}

	peak := func(name string, region, baseline pincer.ROI) (*PeakMagnitude, error) {
		a, err := NewPeakMagnitude(Common{Region: &region, Baseline: &baseline, Direction: pincer.Down})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return a, nil
	}

	pulse1, err := peak("first pulse", cfg.Pulse1, cfg.Baseline1)
	if err != nil {
		return nil, err
	}
	pulse2, err := peak("second pulse", cfg.Pulse2, cfg.Baseline1)
	if err != nil {
		return nil, err
	}
	seal, err := peak("seal test", cfg.SealTest, cfg.Baseline2)
	if err != nil {
		return nil, err
	}

	return &PairedPulse{pulse1: pulse1, pulse2: pulse2, seal: seal, binning: cfg.Binning}, nil
}

// Run implements Analysis.
func (a *PairedPulse) Run(src pincer.Source) (*pincer.Results, error) {
	peak1, err := a.pulse1.PerSweep(src)
	if err != nil {
		return nil, err
	}
	peak2, err := a.pulse2.PerSweep(src)
	if err != nil {
		return nil, err
	}
	seal, err := a.seal.PerSweep(src)
	if err != nil {
		return nil, err
	}

	ppr := make([]float64, len(peak1))
	for i := range peak1 {
		ppr[i] = peak2[i] / peak1[i]
	}

	results := pincer.NewResults()
	for _, out := range []struct {
		format string
		values []float64
	}{
		{"First Peak Mag, Bin %d (pA)", peak1},
		{"PPR, Bin %d", ppr},
		{"SealTest, Bin %d (pA)", seal},
	} {
		bins, err := pincer.Bin(out.values, a.binning, pincer.Mean)
		if err != nil {
			return nil, err
		}
		labelled(results, out.format, bins)
	}
	return results, nil
}

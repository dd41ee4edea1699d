// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/edf"
	"github.com/spf13/cobra"
)

type synthOptions struct {
	rate      float64
	sweeps    int
	duration  float64 // ms
	level     float64
	amplitude float64
	at        float64 // ms
	width     float64 // ms
	noise     float64
	seed      uint64
	span      float64
	label     string
	unit      string
}

func newSynthCmd() *cobra.Command {
	opts := synthOptions{}

	cmd := &cobra.Command{
		Use:     "synth <recording.edf>",
		Short:   "Write a synthetic recording with a rectangular deflection in every sweep",
		Example: "pincer synth --amplitude -50 --at 150 --width 2 24n11001.edf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.source()
			if err != nil {
				return err
			}

			err = edf.WriteSweeps(args[0], edf.SweepHeader{
				PatientID:   "synthetic",
				RecordingID: fmt.Sprintf("seed %d", opts.seed),
				StartTime:   time.Now(),
				Label:       opts.label,
				Unit:        opts.unit,
				SampleRate:  opts.rate,
				SweepLength: len(src.Sweeps[0]),
				Range:       opts.span,
			}, src)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sweeps of %d samples to %s\n",
				len(src.Sweeps), len(src.Sweeps[0]), args[0])
			return err
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.rate, "rate", 10000, "sample rate in Hz")
	f.IntVar(&opts.sweeps, "sweeps", 3, "number of sweeps")
	f.Float64Var(&opts.duration, "duration", 300, "sweep duration in ms")
	f.Float64Var(&opts.level, "level", 0, "resting level")
	f.Float64Var(&opts.amplitude, "amplitude", -50, "deflection amplitude relative to the resting level")
	f.Float64Var(&opts.at, "at", 150, "deflection onset in ms")
	f.Float64Var(&opts.width, "width", 1, "deflection width in ms")
	f.Float64Var(&opts.noise, "noise", 0, "standard deviation of gaussian noise")
	f.Uint64Var(&opts.seed, "seed", 1, "noise seed")
	f.Float64Var(&opts.span, "range", 1000, "samples are stored in [-range, range]")
	f.StringVar(&opts.label, "label", "Im", "channel label")
	f.StringVar(&opts.unit, "unit", "pA", "channel unit")
	return cmd
}

func (o synthOptions) source() (*pincer.MemorySource, error) {
	if o.rate <= 0 || o.rate >= pincer.MaxSampleRate {
		return nil, fmt.Errorf("%w: %g Hz", pincer.ErrUnsupportedSampleRate, o.rate)
	}
	n := int(math.Round(o.duration * o.rate / 1000))
	if o.sweeps <= 0 || n <= 0 {
		return nil, fmt.Errorf("%w: sweeps and duration must be positive", pincer.ErrInvalidParameter)
	}

	start := int(math.Round(o.at * o.rate / 1000))
	end := start + max(1, int(math.Round(o.width*o.rate/1000)))

	rng := rand.New(rand.NewPCG(o.seed, o.seed))
	src := &pincer.MemorySource{Rate: o.rate, Sweeps: make([][]float64, o.sweeps)}
	for s := range src.Sweeps {
		sweep := make([]float64, n)
		for i := range sweep {
			sweep[i] = o.level
			if i >= start && i < end {
				sweep[i] += o.amplitude
			}
			if o.noise > 0 {
				sweep[i] += rng.NormFloat64() * o.noise
			}
		}
		src.Sweeps[s] = sweep
	}
	return src, nil
}

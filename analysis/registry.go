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
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/OpenPSG/pincer"
	"gopkg.in/yaml.v3"
)

// ErrUnknownAnalysis is returned by Create for names missing from the registry.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// Factory builds an analysis from its YAML options. A nil node selects the defaults.
type Factory func(opts *yaml.Node) (Analysis, error)

// Spec names an analysis and carries its raw options.
type Spec struct {
	Name    string    `yaml:"name"`
	Options yaml.Node `yaml:"options"`
}

// Build creates the analysis described by the spec.
func (s Spec) Build() (Analysis, error) {
	return Create(s.Name, &s.Options)
}

// CommonOptions is the YAML form of Common.
type CommonOptions struct {
	Region    Region `yaml:"region"`
	Baseline  Region `yaml:"baseline"`
	Direction int    `yaml:"direction"`
	Binning   int    `yaml:"binning"`
	Reducer   string `yaml:"reducer"`
}

// Common converts the options, looking up the reducer by name.
func (o CommonOptions) Common() (Common, error) {
	reduce, err := pincer.ReducerByName(o.Reducer)
	if err != nil {
		return Common{}, err
	}
	return Common{
		Region:    o.Region.ROI(),
		Baseline:  o.Baseline.ROI(),
		Direction: pincer.Direction(o.Direction),
		Binning:   o.Binning,
		Reducer:   reduce,
	}, nil
}

// strictDecode decodes opts into v, rejecting unknown fields. Fields absent from
// opts keep the values already in v.
func strictDecode(opts *yaml.Node, v any) error {
	if opts == nil || opts.Kind == 0 {
		return nil
	}
	if opts.Kind == yaml.ScalarNode && opts.Tag == "!!null" {
		return nil
	}

	raw, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("error encoding options: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error decoding options: %w", err)
	}
	return nil
}

func required(name string, r Region) (pincer.ROI, error) {
	if r.ROI() == nil {
		return pincer.ROI{}, fmt.Errorf("%w: %s is required", pincer.ErrInvalidParameter, name)
	}
	return *r.ROI(), nil
}

func regions(rs []Region) ([]pincer.ROI, error) {
	out := make([]pincer.ROI, 0, len(rs))
	for i, r := range rs {
		roi, err := required(fmt.Sprintf("region %d", i), r)
		if err != nil {
			return nil, err
		}
		out = append(out, roi)
	}
	return out, nil
}

// registry holds the factory of every single analysis. Multi and Suppress nest
// other analyses and are resolved by Create.
var registry = map[string]Factory{
	"PeakMagnitude": func(node *yaml.Node) (Analysis, error) {
		opts := CommonOptions{Direction: -1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		c, err := opts.Common()
		if err != nil {
			return nil, err
		}
		return NewPeakMagnitude(c)
	},
	"AreaUnderCurve": func(node *yaml.Node) (Analysis, error) {
		opts := CommonOptions{Direction: -1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		c, err := opts.Common()
		if err != nil {
			return nil, err
		}
		return NewAreaUnderCurve(c)
	},
	"CountThresholdEvents": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			CommonOptions `yaml:",inline"`
			Threshold     float64 `yaml:"threshold"`
			MinEventWidth float64 `yaml:"min_event_width_ms"`
			Prominence    float64 `yaml:"prominence"`
		}{CommonOptions: CommonOptions{Direction: -1}, MinEventWidth: 1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		c, err := opts.Common()
		if err != nil {
			return nil, err
		}
		return NewCountThresholdEvents(CountThresholdEvents{
			Common:        c,
			Threshold:     opts.Threshold,
			MinEventWidth: opts.MinEventWidth,
			Prominence:    opts.Prominence,
		})
	},
	"PairedPulse": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			Baseline1 Region `yaml:"baseline1"`
			Pulse1    Region `yaml:"pulse1"`
			Pulse2    Region `yaml:"pulse2"`
			Baseline2 Region `yaml:"baseline2"`
			SealTest  Region `yaml:"sealtest"`
			Binning   int    `yaml:"binning"`
		}{Binning: 1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		var cfg PairedPulseConfig
		for _, r := range []struct {
			name string
			in   Region
			out  *pincer.ROI
		}{
			{"baseline1", opts.Baseline1, &cfg.Baseline1},
			{"pulse1", opts.Pulse1, &cfg.Pulse1},
			{"pulse2", opts.Pulse2, &cfg.Pulse2},
			{"baseline2", opts.Baseline2, &cfg.Baseline2},
			{"sealtest", opts.SealTest, &cfg.SealTest},
		} {
			roi, err := required(r.name, r.in)
			if err != nil {
				return nil, err
			}
			*r.out = roi
		}
		cfg.Binning = opts.Binning
		return NewPairedPulse(cfg)
	},
	"CRACM": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			Baseline       Region   `yaml:"baseline"`
			PulsesPerSweep int      `yaml:"pulses_per_sweep"`
			Threshold      float64  `yaml:"threshold"`
			MinEventWidth  float64  `yaml:"min_event_width_ms"`
			Pulses         []Region `yaml:"pulses"`
		}{PulsesPerSweep: 3, Threshold: -20, MinEventWidth: 1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		baseline, err := required("baseline", opts.Baseline)
		if err != nil {
			return nil, err
		}
		pulses, err := regions(opts.Pulses)
		if err != nil {
			return nil, err
		}
		return NewCRACM(CRACMConfig{
			Baseline:       baseline,
			PulsesPerSweep: opts.PulsesPerSweep,
			Threshold:      opts.Threshold,
			MinEventWidth:  opts.MinEventWidth,
			Pulses:         pulses,
		})
	},
	"APThreshold": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			CommonOptions `yaml:",inline"`
			Threshold     float64 `yaml:"threshold"`
		}{CommonOptions: CommonOptions{Direction: 1}, Threshold: -20}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		c, err := opts.Common()
		if err != nil {
			return nil, err
		}
		return NewAPThreshold(APThreshold{Common: c, Threshold: opts.Threshold})
	},
	"CurrentInducedAP": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			Resting   Region  `yaml:"resting"`
			Region    Region  `yaml:"region"`
			Threshold float64 `yaml:"threshold"`
			Binning   int     `yaml:"binning"`
			Reducer   string  `yaml:"reducer"`
		}{Threshold: -20}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		resting, err := required("resting", opts.Resting)
		if err != nil {
			return nil, err
		}
		reduce, err := pincer.ReducerByName(opts.Reducer)
		if err != nil {
			return nil, err
		}
		return NewCurrentInducedAP(CurrentInducedAP{
			Resting:   resting,
			Region:    opts.Region.ROI(),
			Threshold: opts.Threshold,
			Binning:   opts.Binning,
			Reducer:   reduce,
		})
	},
	"MembraneTest": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			Baseline Region  `yaml:"baseline"`
			Region   Region  `yaml:"region"`
			StepSize float64 `yaml:"step_mv"`
			Binning  int     `yaml:"binning"`
			Reducer  string  `yaml:"reducer"`
		}{StepSize: 5}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		baseline, err := required("baseline", opts.Baseline)
		if err != nil {
			return nil, err
		}
		region, err := required("region", opts.Region)
		if err != nil {
			return nil, err
		}
		reduce, err := pincer.ReducerByName(opts.Reducer)
		if err != nil {
			return nil, err
		}
		return NewMembraneTest(MembraneTest{
			Baseline: baseline,
			Region:   region,
			StepSize: opts.StepSize,
			Binning:  opts.Binning,
			Reducer:  reduce,
		})
	},
	"Peaks": func(node *yaml.Node) (Analysis, error) {
		opts := struct {
			Baseline  Region   `yaml:"baseline"`
			Regions   []Region `yaml:"regions"`
			Direction int      `yaml:"direction"`
		}{Direction: 1}
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		rs, err := regions(opts.Regions)
		if err != nil {
			return nil, err
		}
		return NewPeaks(Peaks{Baseline: opts.Baseline.ROI(), Regions: rs, Direction: pincer.Direction(opts.Direction)})
	},
}

// Create builds the named analysis from its YAML options.
func Create(name string, opts *yaml.Node) (Analysis, error) {
	var (
		a   Analysis
		err error
	)
	switch name {
	case "Multi":
		a, err = createMulti(opts)
	case "Suppress":
		a, err = createSuppress(opts)
	default:
		factory, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysis, name)
		}
		a, err = factory(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// Names returns the sorted names accepted by Create.
func Names() []string {
	names := []string{"Multi", "Suppress"}
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func createMulti(node *yaml.Node) (Analysis, error) {
	var opts struct {
		Analyses []Spec `yaml:"analyses"`
	}
	if err := strictDecode(node, &opts); err != nil {
		return nil, err
	}
	if len(opts.Analyses) == 0 {
		return nil, fmt.Errorf("%w: at least one analysis is required", pincer.ErrInvalidParameter)
	}

	multi := make(Multi, 0, len(opts.Analyses))
	for _, spec := range opts.Analyses {
		a, err := spec.Build()
		if err != nil {
			return nil, err
		}
		multi = append(multi, a)
	}
	return multi, nil
}

func createSuppress(node *yaml.Node) (Analysis, error) {
	var opts struct {
		Analysis Spec     `yaml:"analysis"`
		Keywords []string `yaml:"keywords"`
	}
	if err := strictDecode(node, &opts); err != nil {
		return nil, err
	}
	a, err := opts.Analysis.Build()
	if err != nil {
		return nil, err
	}
	return Suppress{Analysis: a, Keywords: opts.Keywords}, nil
}

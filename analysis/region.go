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
	"gopkg.in/yaml.v3"
)

// Region is an optional region of interest as written in configuration.
// It accepts a single pair, a list of pairs, or a mapping with a unit:
//
//	region: [110, 155]
//	region: [[0, 100], [450, 480]]
//	region: {unit: s, ranges: [[0, 2]]}
//
// Bounds are in milliseconds unless a unit is given. An absent or null region is nil.
type Region struct {
	roi *pincer.ROI
}

// RegionOf wraps an existing ROI.
func RegionOf(roi pincer.ROI) Region {
	return Region{roi: &roi}
}

// ROI returns the region, nil when it was not set.
func (r Region) ROI() *pincer.ROI {
	return r.roi
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Region) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		r.roi = nil
		return nil
	}

	unit := pincer.Milliseconds
	rangesNode := node
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if k := node.Content[i].Value; k != "unit" && k != "ranges" {
				return fmt.Errorf("line %d: %w: unknown key %q, use unit and ranges",
					node.Content[i].Line, pincer.ErrInvalidRange, k)
			}
		}
		var spec struct {
			Unit   string    `yaml:"unit"`
			Ranges yaml.Node `yaml:"ranges"`
		}
		if err := node.Decode(&spec); err != nil {
			return err
		}
		if spec.Unit != "" {
			u, err := pincer.ParseUnit(spec.Unit)
			if err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
			unit = u
		}
		rangesNode = &spec.Ranges
	}

	ranges, err := decodeRanges(rangesNode)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	roi, err := pincer.NewROI(unit, ranges...)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	r.roi = &roi
	return nil
}

// decodeRanges promotes a single [start, end] pair to a list of one range.
func decodeRanges(node *yaml.Node) ([]pincer.Range, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected [start, end] or a list of them", pincer.ErrInvalidRange)
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.ScalarNode {
		r, err := decodePair(node)
		if err != nil {
			return nil, err
		}
		return []pincer.Range{r}, nil
	}

	ranges := make([]pincer.Range, 0, len(node.Content))
	for _, child := range node.Content {
		r, err := decodePair(child)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func decodePair(node *yaml.Node) (pincer.Range, error) {
	var pair []int64
	if node.Kind != yaml.SequenceNode || node.Decode(&pair) != nil {
		return pincer.Range{}, fmt.Errorf("%w: ranges must be pairs of integers", pincer.ErrInvalidRange)
	}
	if len(pair) != 2 {
		return pincer.Range{}, fmt.Errorf("%w: ranges may only be defined as [start, end], got %d values",
			pincer.ErrInvalidRange, len(pair))
	}
	return pincer.Range{Start: pair[0], End: pair[1]}, nil
}

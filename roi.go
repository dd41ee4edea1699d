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
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// MaxSampleRate is the exclusive upper bound on sample rates a ROI can be resolved at.
// At or above it a sample is shorter than one microsecond.
const MaxSampleRate = 100_000

// ROI is a region of interest in time units. The ranges are always sorted and merged,
// so no two ranges overlap or touch. A ROI is immutable: conversions return a new value.
type ROI struct {
	ranges []Range
	unit   Unit
}

// NewROI creates a region of interest from one or more ranges in the given time unit.
func NewROI(unit Unit, ranges ...Range) (ROI, error) {
	if _, ok := unitScale[unit]; !ok {
		return ROI{}, fmt.Errorf("%w: %q, use one of: us, ms, s, sec, min", ErrInvalidUnit, unit)
	}
	if len(ranges) == 0 {
		return ROI{}, fmt.Errorf("%w: at least one range is required", ErrInvalidRange)
	}
	for _, r := range ranges {
		if r.Start < 0 || r.End < 0 {
			return ROI{}, fmt.Errorf("%w: %s has a negative bound", ErrInvalidRange, r)
		}
		if r.Start > r.End {
			return ROI{}, fmt.Errorf("%w: %s starts after it ends", ErrInvalidRange, r)
		}
	}

	return ROI{ranges: mergeRanges(ranges), unit: unit}, nil
}

// Span is shorthand for a single-range ROI in milliseconds.
func Span(start, end int64) (ROI, error) {
	return NewROI(Milliseconds, Range{Start: start, End: end})
}

// Unit returns the unit of the ROI.
func (roi ROI) Unit() Unit {
	return roi.unit
}

// Ranges returns a copy of the merged ranges, in order.
func (roi ROI) Ranges() []Range {
	return slices.Clone(roi.ranges)
}

// IsZero reports whether the ROI was never constructed.
func (roi ROI) IsZero() bool {
	return len(roi.ranges) == 0
}

// Equal reports whether both ROIs hold the same ranges in the same unit.
func (roi ROI) Equal(other ROI) bool {
	return roi.unit == other.unit && slices.Equal(roi.ranges, other.ranges)
}

// ConvertUnit rescales every bound to the target unit using integer floor division.
// Conversions to a coarser unit that are not exact lose precision.
func (roi ROI) ConvertUnit(target Unit) (ROI, error) {
	to, ok := unitScale[target]
	if !ok {
		return ROI{}, fmt.Errorf("%w: cannot convert to %q", ErrInvalidUnit, target)
	}
	from := unitScale[roi.unit]

	converted, err := rescale(roi.ranges, from, to)
	if err != nil {
		return ROI{}, err
	}

	return ROI{ranges: mergeRanges(converted), unit: target}, nil
}

// Union returns the merged union of both ROIs, expressed in whichever of the two
// units spans more microseconds.
func (roi ROI) Union(other ROI) (ROI, error) {
	unit := roi.unit
	if unitScale[other.unit] > unitScale[unit] {
		unit = other.unit
	}

	a, err := roi.ConvertUnit(unit)
	if err != nil {
		return ROI{}, err
	}
	b, err := other.ConvertUnit(unit)
	if err != nil {
		return ROI{}, err
	}

	return NewROI(unit, append(a.ranges, b.ranges...)...)
}

// Resolve converts the ROI to sample indices at the given sample rate.
func (roi ROI) Resolve(sampleRate float64) (SampleROI, error) {
	if math.IsNaN(sampleRate) || sampleRate <= 0 || sampleRate >= MaxSampleRate {
		return SampleROI{}, fmt.Errorf("%w: %g Hz, must be positive and below %d Hz",
			ErrUnsupportedSampleRate, sampleRate, MaxSampleRate)
	}
	if roi.IsZero() {
		return SampleROI{}, fmt.Errorf("%w: empty ROI", ErrInvalidRange)
	}

	usPerSample := int64(math.Floor(1e6 / sampleRate))
	from := unitScale[roi.unit]

	converted, err := rescale(roi.ranges, from, usPerSample)
	if err != nil {
		return SampleROI{}, err
	}

	return SampleROI{
		ranges:      mergeRanges(converted),
		sampleRate:  sampleRate,
		usPerSample: usPerSample,
	}, nil
}

func (roi ROI) String() string {
	return "ROI " + formatRanges(roi.ranges) + " in " + string(roi.unit)
}

// SampleROI is a region of interest resolved to sample indices at a fixed sample rate.
type SampleROI struct {
	ranges      []Range
	sampleRate  float64
	usPerSample int64
}

// Ranges returns a copy of the sample ranges, in order.
func (s SampleROI) Ranges() []Range {
	return slices.Clone(s.ranges)
}

// SampleRate returns the rate the ROI was resolved at.
func (s SampleROI) SampleRate() float64 {
	return s.sampleRate
}

// Len returns the total number of samples selected by the ROI.
func (s SampleROI) Len() int {
	var n int64
	for _, r := range s.ranges {
		n += r.Len()
	}
	return int(n)
}

// Filter returns the concatenation of trace[start:end] for every range, in order.
// A range reaching past the end of the trace is an error, it is never clipped.
func (s SampleROI) Filter(trace []float64) ([]float64, error) {
	for _, r := range s.ranges {
		if r.End > int64(len(trace)) {
			return nil, fmt.Errorf("%w: %s exceeds trace of %d samples", ErrOutOfBounds, r, len(trace))
		}
	}

	out := make([]float64, 0, s.Len())
	for _, r := range s.ranges {
		out = append(out, trace[r.Start:r.End]...)
	}
	return out, nil
}

// Union merges two sample ROIs resolved at the same sample rate.
func (s SampleROI) Union(other SampleROI) (SampleROI, error) {
	if s.usPerSample != other.usPerSample {
		return SampleROI{}, fmt.Errorf("%w: resolved at %g Hz and %g Hz",
			ErrUnitMismatch, s.sampleRate, other.sampleRate)
	}

	return SampleROI{
		ranges:      mergeRanges(append(slices.Clone(s.ranges), other.ranges...)),
		sampleRate:  s.sampleRate,
		usPerSample: s.usPerSample,
	}, nil
}

func (s SampleROI) String() string {
	return "ROI " + formatRanges(s.ranges) + " in " + string(Samples)
}

// mergeRanges sorts ranges by start and coalesces any range that starts at or
// before the running end of the previous one.
func mergeRanges(ranges []Range) []Range {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int {
		if a.Start != b.Start {
			return cmp.Compare(a.Start, b.Start)
		}
		return cmp.Compare(a.End, b.End)
	})

	merged := make([]Range, 0, len(sorted))
	for _, r := range sorted {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// rescale maps every bound b to b*mul/div, failing instead of wrapping around.
func rescale(ranges []Range, mul, div int64) ([]Range, error) {
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		if r.End > math.MaxInt64/mul {
			return nil, fmt.Errorf("%w: %s is too large to convert", ErrInvalidRange, r)
		}
		out[i] = Range{Start: r.Start * mul / div, End: r.End * mul / div}
	}
	return out, nil
}

func formatRanges(ranges []Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

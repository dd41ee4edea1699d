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
	"strings"
)

// Reducer reduces a sequence of values to one value.
// Reducers accumulate strictly left to right so results are reproducible.
type Reducer func(values []float64) float64

// Sum returns the sum of values, 0 for no values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of values, NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return Sum(values) / float64(len(values))
}

// Max returns the largest value, NaN for no values.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest value, NaN for no values.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return minOf(values)
}

// ReducerByName looks up one of the built in reducers: mean, sum, max or min.
func ReducerByName(name string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mean":
		return Mean, nil
	case "sum":
		return Sum, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	default:
		return nil, fmt.Errorf("%w: unknown reducer %q", ErrInvalidParameter, name)
	}
}

// Scale returns a copy of trace multiplied by the direction.
func Scale(trace []float64, d Direction) []float64 {
	out := make([]float64, len(trace))
	for i, v := range trace {
		out[i] = v * float64(d)
	}
	return out
}

// Baseline subtracts the mean of the baseline region from every sample of trace.
// It returns the shifted trace and the integer part of the mean.
func Baseline(trace []float64, roi SampleROI) ([]float64, int64, error) {
	region, err := roi.Filter(trace)
	if err != nil {
		return nil, 0, fmt.Errorf("error filtering baseline: %w", err)
	}
	if len(region) == 0 {
		return nil, 0, fmt.Errorf("%w: baseline %s selects no samples", ErrEmptyRegion, roi)
	}

	mean := Mean(region)
	out := make([]float64, len(trace))
	for i, v := range trace {
		out[i] = v - mean
	}
	return out, int64(math.Trunc(mean)), nil
}

// Bin groups values into consecutive bins of size and reduces each bin.
// A size of 0 reduces all values into a single bin. A trailing partial bin is dropped.
func Bin(values []float64, size int, reduce Reducer) ([]float64, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: bin size must be >= 0, got %d", ErrInvalidParameter, size)
	}
	if reduce == nil {
		reduce = Mean
	}
	if size == 0 {
		return []float64{reduce(values)}, nil
	}

	bins := make([]float64, 0, len(values)/size)
	for start := 0; start+size <= len(values); start += size {
		bins = append(bins, reduce(values[start:start+size]))
	}
	return bins, nil
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pincer

// Label numbers each maximal run of true values in mask, starting at 1 and counting
// left to right. False positions are labelled 0.
func Label(mask []bool) []int {
	labels := make([]int, len(mask))

	count := 0
	inRegion := false
	for i, set := range mask {
		if !set {
			inRegion = false
			continue
		}
		if !inRegion {
			count++
			inRegion = true
		}
		labels[i] = count
	}

	return labels
}

// Region is a contiguous run of samples sharing one label.
type Region struct {
	Label int
	Range
}

// Regions returns the labelled runs of a Label output in order.
func Regions(labels []int) []Region {
	var regions []Region
	for i, l := range labels {
		if l == 0 {
			continue
		}
		if n := len(regions); n > 0 && regions[n-1].Label == l {
			regions[n-1].End = int64(i + 1)
			continue
		}
		regions = append(regions, Region{Label: l, Range: Range{Start: int64(i), End: int64(i + 1)}})
	}
	return regions
}

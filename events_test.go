// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pincer_test

import (
	"testing"

	"github.com/OpenPSG/pincer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, []int{0, 1, 1, 0, 2}, pincer.Label([]bool{false, true, true, false, true}))
	assert.Equal(t, []int{0, 0, 0}, pincer.Label([]bool{false, false, false}))
	assert.Equal(t, []int{1, 1, 1}, pincer.Label([]bool{true, true, true}))
	assert.Empty(t, pincer.Label(nil))
}

func TestRegions(t *testing.T) {
	regions := pincer.Regions([]int{0, 1, 1, 0, 2})
	assert.Equal(t, []pincer.Region{
		{Label: 1, Range: pincer.Range{Start: 1, End: 3}},
		{Label: 2, Range: pincer.Range{Start: 4, End: 5}},
	}, regions)
}

func TestDetectEvents(t *testing.T) {
	trace := []float64{0, 5, 0, 0, 6, 7, 0}

	events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 1, MinLength: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, events)

	events, err = pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 1, MinLength: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, events)
}

func TestDetectEventsDownward(t *testing.T) {
	trace := []float64{0, -5, 0, -3, -3, 0}

	events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 2, Direction: pincer.Down})
	require.NoError(t, err)
	// Ties resolve to the first occurrence.
	assert.Equal(t, []int{1, 3}, events)
}

func TestDetectEventsNoneAboveThreshold(t *testing.T) {
	events, err := pincer.DetectEvents([]float64{0, 1, 2, 1}, pincer.EventOptions{Threshold: 10})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDetectEventsValidation(t *testing.T) {
	_, err := pincer.DetectEvents(nil, pincer.EventOptions{Direction: 2})
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)

	_, err = pincer.DetectEvents(nil, pincer.EventOptions{MinLength: -1})
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)

	_, err = pincer.DetectEvents(nil, pincer.EventOptions{Prominence: -1})
	assert.ErrorIs(t, err, pincer.ErrInvalidParameter)
}

func TestDetectEventsProminence(t *testing.T) {
	// A small ripple riding on a large peak is dropped, the two genuine peaks survive.
	trace := []float64{0, 10, 0, 0, 4, 3.5, 4.2, 0, 9, 0}

	events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 1, MinLength: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6, 8}, events)

	events, err = pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 1, MinLength: 1, Prominence: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 8}, events)
}

func TestFilterProminenceMeasuresFromSurvivors(t *testing.T) {
	// The event at 3 sits in a shallow dip and is dropped. The event at 5 is then
	// measured back to the event at 1, across the deeper valley at 2.
	trace := []float64{0, 10, 3, 5, 4, 6, 0}
	events := []int{1, 3, 5}

	filtered, err := pincer.FilterProminence(trace, events, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, filtered)

	// Fixed point: filtering the output again changes nothing.
	again, err := pincer.FilterProminence(trace, filtered, 3)
	require.NoError(t, err)
	assert.Equal(t, filtered, again)
}

func TestFilterProminenceFixedPoint(t *testing.T) {
	trace := make([]float64, 200)
	for i := range trace {
		trace[i] = float64((i*37)%23) - float64((i*11)%7)
	}

	events, err := pincer.DetectEvents(trace, pincer.EventOptions{Threshold: 5, MinLength: 1, Prominence: 4})
	require.NoError(t, err)

	again, err := pincer.FilterProminence(trace, events, 4)
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestFilterProminenceValidatesEvents(t *testing.T) {
	_, err := pincer.FilterProminence([]float64{0, 1}, []int{42}, 3)
	assert.ErrorIs(t, err, pincer.ErrOutOfBounds)
}

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pincer

import "errors"

var (
	// ErrInvalidRange is returned when a range is negative, reversed, or missing.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidUnit is returned for a unit outside us, ms, s, sec and min.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrUnsupportedSampleRate is returned when a ROI cannot be resolved at a sample rate.
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")
	// ErrUnitMismatch is returned when sample-unit ROIs resolved at different rates are combined.
	ErrUnitMismatch = errors.New("unit mismatch")
	// ErrOutOfBounds is returned when a range reaches past the end of a trace.
	ErrOutOfBounds = errors.New("range out of bounds")
	// ErrInvalidParameter is returned for out-of-domain analysis parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyRegion is returned when a baseline region selects no samples.
	ErrEmptyRegion = errors.New("empty region")
)

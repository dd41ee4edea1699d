// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads and writes sweep recordings stored as EDF files.
//
// Each EDF data record holds one sweep. The sample rate of a signal is its
// samples per record divided by the record duration.
package edf

import "time"

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Header represents the EDF file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the animal or patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record (one sweep)
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal (channel) in the file.
type Signal struct {
	Label             string  // Label of the signal (e.g., Im, Vm)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., pA, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// SampleRate returns the sample rate of the signal in Hz, 0 if the record duration is unknown.
func (h *Header) SampleRate(signal int) float64 {
	if signal < 0 || signal >= len(h.Signals) || h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[signal].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}

// recordSize returns the size of one data record in bytes.
func (h *Header) recordSize() int {
	size := 0
	for _, sig := range h.Signals {
		size += sig.SamplesPerRecord * 2
	}
	return size
}

// signalOffset returns the byte offset of a signal within a data record.
func (h *Header) signalOffset(signal int) int {
	offset := 0
	for _, sig := range h.Signals[:signal] {
		offset += sig.SamplesPerRecord * 2
	}
	return offset
}

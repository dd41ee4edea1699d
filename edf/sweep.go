// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"os"
	"time"

	"github.com/OpenPSG/pincer"
)

// SweepFile is a recording on disk whose data records are sweeps of one channel.
type SweepFile struct {
	f       *os.File
	r       *Reader
	channel int
	path    string
}

var _ pincer.Source = (*SweepFile)(nil)

// OpenSweeps opens the recording at path and selects a channel.
// A missing file yields an error wrapping fs.ErrNotExist.
func OpenSweeps(path string, channel int) (*SweepFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening recording: %w", err)
	}

	r, err := Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	hdr := r.Header()
	if channel < 0 || channel >= hdr.SignalCount {
		_ = f.Close()
		return nil, fmt.Errorf("%w: channel %d of %d in %s", ErrRecordOutOfRange, channel, hdr.SignalCount, path)
	}

	return &SweepFile{f: f, r: r, channel: channel, path: path}, nil
}

// Path returns the file the sweeps are read from.
func (sf *SweepFile) Path() string {
	return sf.path
}

// Header returns the EDF header of the recording.
func (sf *SweepFile) Header() Header {
	return sf.r.Header()
}

// SweepCount returns the number of sweeps (data records).
func (sf *SweepFile) SweepCount() int {
	return sf.r.hdr.DataRecords
}

// SampleRate returns the sample rate of the selected channel in Hz.
func (sf *SweepFile) SampleRate() float64 {
	return sf.r.hdr.SampleRate(sf.channel)
}

// Sweep returns the physical samples of sweep i.
func (sf *SweepFile) Sweep(i int) ([]float64, error) {
	return sf.r.Record(sf.channel, i)
}

// Close closes the underlying file.
func (sf *SweepFile) Close() error {
	return sf.f.Close()
}

// SweepHeader describes a single-channel sweep recording.
type SweepHeader struct {
	PatientID   string    // Animal or patient identifier
	RecordingID string    // Recording session identifier
	StartTime   time.Time // Start of the recording
	Label       string    // Channel label (e.g., Im)
	Unit        string    // Physical dimension (e.g., pA)
	SampleRate  float64   // Sample rate in Hz
	SweepLength int       // Samples per sweep
	Range       float64   // Samples are stored in [-Range, Range]
}

// Header expands the sweep description into a full EDF header.
func (sh SweepHeader) Header() (Header, error) {
	if sh.SampleRate <= 0 || sh.SweepLength <= 0 || sh.Range <= 0 {
		return Header{}, fmt.Errorf("sample rate, sweep length and range must be positive")
	}

	return Header{
		Version:            Version0,
		PatientID:          sh.PatientID,
		RecordingID:        sh.RecordingID,
		StartTime:          sh.StartTime,
		DataRecordDuration: time.Duration(float64(sh.SweepLength) / sh.SampleRate * float64(time.Second)),
		SignalCount:        1,
		Signals: []Signal{
			{
				Label:             sh.Label,
				PhysicalDimension: sh.Unit,
				PhysicalMin:       -sh.Range,
				PhysicalMax:       sh.Range,
				// A symmetric digital range stores zero exactly.
				DigitalMin:        -32767,
				DigitalMax:        32767,
				SamplesPerRecord:  sh.SweepLength,
			},
		},
	}, nil
}

// WriteSweeps writes every sweep of src into a new single-channel recording at path.
func WriteSweeps(path string, sh SweepHeader, src pincer.Source) (err error) {
	hdr, err := sh.Header()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating recording: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	ew, err := Create(f, hdr)
	if err != nil {
		return err
	}

	for i := 0; i < src.SweepCount(); i++ {
		sweep, err := src.Sweep(i)
		if err != nil {
			return fmt.Errorf("error reading sweep %d: %w", i, err)
		}
		if err := ew.WriteSweep(sweep); err != nil {
			return fmt.Errorf("error writing sweep %d: %w", i, err)
		}
	}

	return ew.Close()
}

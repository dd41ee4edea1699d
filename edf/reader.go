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
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrRecordOutOfRange is returned when a data record or signal index does not exist.
var ErrRecordOutOfRange = errors.New("record out of range")

// Reader reads EDF files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// signalField describes one column of the per-signal header block.
type signalField struct {
	name  string
	width int
	set   func(sig *Signal, v string) error
}

var signalFields = []signalField{
	{"label", 16, func(sig *Signal, v string) error { sig.Label = v; return nil }},
	{"transducer type", 80, func(sig *Signal, v string) error { sig.TransducerType = v; return nil }},
	{"physical dimension", 8, func(sig *Signal, v string) error { sig.PhysicalDimension = v; return nil }},
	{"physical minimum", 8, func(sig *Signal, v string) (err error) { sig.PhysicalMin, err = parseFloat(v); return }},
	{"physical maximum", 8, func(sig *Signal, v string) (err error) { sig.PhysicalMax, err = parseFloat(v); return }},
	{"digital minimum", 8, func(sig *Signal, v string) (err error) { sig.DigitalMin, err = parseInt(v); return }},
	{"digital maximum", 8, func(sig *Signal, v string) (err error) { sig.DigitalMax, err = parseInt(v); return }},
	{"prefiltering", 80, func(sig *Signal, v string) error { sig.Prefiltering = v; return nil }},
	{"samples per record", 8, func(sig *Signal, v string) (err error) { sig.SamplesPerRecord, err = parseInt(v); return }},
	{"reserved", 32, func(sig *Signal, v string) error { sig.Reserved = v; return nil }},
}

// Open opens an EDF file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to header: %w", err)
	}
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	// Parse fields based on EDF specifications
	hdr := &Header{}
	hdr.Version = Version(strings.TrimSpace(string(b[0:8])))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	// Parse start date and time
	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = parseInt(string(b[184:192])); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}

	if hdr.DataRecords, err = parseInt(string(b[236:244])); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}

	hdr.DataRecordDuration, err = time.ParseDuration(fmt.Sprintf("%ss", strings.TrimSpace(string(b[244:252]))))
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	if hdr.SignalCount, err = parseInt(string(b[252:256])); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("error parsing signal count: negative count %d", hdr.SignalCount)
	}

	// Signal headers are stored column by column: every label, then every transducer, ...
	hdr.Signals = make([]Signal, hdr.SignalCount)
	for _, field := range signalFields {
		buf := make([]byte, field.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			if err := field.set(&hdr.Signals[i], strings.TrimSpace(string(buf))); err != nil {
				return nil, fmt.Errorf("error parsing %s of signal %d: %w", field.name, i, err)
			}
		}
	}

	// Writers that were never closed leave the record count unknown.
	if hdr.DataRecords < 0 {
		if hdr.DataRecords, err = countRecords(r, hdr); err != nil {
			return nil, err
		}
	}

	return &Reader{
		r:   r,
		hdr: hdr,
	}, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() Header {
	return *er.hdr
}

// Record reads every sample of one signal in one data record as physical values.
func (er *Reader) Record(signalIndex, record int) ([]float64, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("%w: signal %d of %d", ErrRecordOutOfRange, signalIndex, len(er.hdr.Signals))
	}
	if record < 0 || record >= er.hdr.DataRecords {
		return nil, fmt.Errorf("%w: record %d of %d", ErrRecordOutOfRange, record, er.hdr.DataRecords)
	}

	signal := er.hdr.Signals[signalIndex]

	// Calculate position of the first digital sample of the signal in the record
	pos := int64(er.hdr.HeaderBytes) + int64(record)*int64(er.hdr.recordSize()) + int64(er.hdr.signalOffset(signalIndex))
	if _, err := er.r.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to position: %w", err)
	}

	buf := make([]byte, signal.SamplesPerRecord*2)
	if _, err := io.ReadFull(er.r, buf); err != nil {
		return nil, fmt.Errorf("error reading sample data: %w", err)
	}

	data := make([]float64, signal.SamplesPerRecord)
	for i := range data {
		digitalValue := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		data[i] = convertDigitalToPhysical(digitalValue, signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax)
	}

	return data, nil
}

// countRecords derives the number of complete data records from the file size.
func countRecords(r io.Seeker, hdr *Header) (int, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("error seeking to end of file: %w", err)
	}
	recordSize := hdr.recordSize()
	if recordSize == 0 || size < int64(hdr.HeaderBytes) {
		return 0, nil
	}
	return int((size - int64(hdr.HeaderBytes)) / int64(recordSize)), nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

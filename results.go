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
	"strconv"
	"strings"
)

// Value is a numeric or textual analysis result.
type Value struct {
	num    float64
	text   string
	isText bool
}

// Number wraps a numeric result.
func Number(f float64) Value {
	return Value{num: f}
}

// Text wraps a textual result.
func Text(s string) Value {
	return Value{text: s, isText: true}
}

// Float returns the numeric value, false if the value is textual.
func (v Value) Float() (float64, bool) {
	return v.num, !v.isText
}

// IsText reports whether the value is textual.
func (v Value) IsText() bool {
	return v.isText
}

func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// Entry is one labelled result.
type Entry struct {
	Label string
	Value Value
}

// Results is an insertion ordered mapping of result labels to values.
// Setting an existing label replaces its value in place.
type Results struct {
	entries []Entry
	index   map[string]int
}

// NewResults returns an empty result mapping.
func NewResults() *Results {
	return &Results{index: map[string]int{}}
}

// Set stores a value under label.
func (r *Results) Set(label string, v Value) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	if i, ok := r.index[label]; ok {
		r.entries[i].Value = v
		return
	}
	r.index[label] = len(r.entries)
	r.entries = append(r.entries, Entry{Label: label, Value: v})
}

// SetFloat stores a numeric value under label.
func (r *Results) SetFloat(label string, f float64) {
	r.Set(label, Number(f))
}

// Setf stores a numeric value under a formatted label.
func (r *Results) Setf(f float64, format string, args ...any) {
	r.Set(fmt.Sprintf(format, args...), Number(f))
}

// Get returns the value stored under label.
func (r *Results) Get(label string) (Value, bool) {
	i, ok := r.index[label]
	if !ok {
		return Value{}, false
	}
	return r.entries[i].Value, true
}

// Float returns the numeric value stored under label.
func (r *Results) Float(label string) (float64, bool) {
	v, ok := r.Get(label)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Delete removes label, keeping the order of the remaining entries.
func (r *Results) Delete(label string) {
	i, ok := r.index[label]
	if !ok {
		return
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.index, label)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].Label] = j
	}
}

// Len returns the number of entries.
func (r *Results) Len() int {
	return len(r.entries)
}

// Labels returns the labels in insertion order.
func (r *Results) Labels() []string {
	labels := make([]string, len(r.entries))
	for i, e := range r.entries {
		labels[i] = e.Label
	}
	return labels
}

// Entries returns a copy of the entries in insertion order.
func (r *Results) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Merge copies every entry of other into r. Values from other win on collision.
func (r *Results) Merge(other *Results) *Results {
	if other == nil {
		return r
	}
	for _, e := range other.entries {
		r.Set(e.Label, e.Value)
	}
	return r
}

func (r *Results) String() string {
	var sb strings.Builder
	for i, e := range r.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", e.Label, e.Value)
	}
	return "{" + sb.String() + "}"
}

// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package polling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	uhf "github.com/ZaparooProject/go-uhf"
)

// ReportEntry aggregates every sighting of one tag during a report
type ReportEntry struct {
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
	RSSI      *int8     `json:"rssi,omitempty" yaml:"rssi,omitempty"`
	EPC       string    `json:"epc" yaml:"epc"`
	TID       string    `json:"tid,omitempty" yaml:"tid,omitempty"`
	Antennas  []int     `json:"antennas,omitempty" yaml:"antennas,omitempty"`
	SeenCount int       `json:"seen_count" yaml:"seen_count"`
}

// Report is the aggregated result of several inventory rounds
type Report struct {
	Started  time.Time     `json:"started" yaml:"started"`
	Finished time.Time     `json:"finished" yaml:"finished"`
	ID       uuid.UUID     `json:"id" yaml:"id"`
	Entries  []ReportEntry `json:"tags" yaml:"tags"`
	Rounds   int           `json:"rounds" yaml:"rounds"`
	Errors   int           `json:"errors" yaml:"errors"`

	index map[string]int
}

// NewReport creates an empty report with a fresh ID
func NewReport() *Report {
	return &Report{
		ID:      uuid.New(),
		Started: time.Now(),
		index:   make(map[string]int),
	}
}

// Add merges one round of tags into the report
func (r *Report) Add(tags []uhf.UhfTag) {
	r.Rounds++
	for i := range tags {
		tag := &tags[i]
		seen := tag.Timestamp
		if seen.IsZero() {
			seen = time.Now()
		}

		id := tag.ID()
		pos, ok := r.index[id]
		if !ok {
			r.Entries = append(r.Entries, ReportEntry{EPC: id, FirstSeen: seen})
			pos = len(r.Entries) - 1
			r.index[id] = pos
		}

		entry := &r.Entries[pos]
		entry.SeenCount++
		entry.LastSeen = seen
		if tag.RSSI != nil {
			rssi := *tag.RSSI
			entry.RSSI = &rssi
		}
		if len(tag.TID) > 0 {
			entry.TID = tag.TIDString()
		}
		if tag.Antenna > 0 && !containsInt(entry.Antennas, tag.Antenna) {
			entry.Antennas = append(entry.Antennas, tag.Antenna)
			sort.Ints(entry.Antennas)
		}
	}
	r.Finished = time.Now()
}

// Len returns the number of distinct tags
func (r *Report) Len() int {
	return len(r.Entries)
}

// Entry returns the entry for an EPC in upper-case hex
func (r *Report) Entry(epc string) (ReportEntry, bool) {
	pos, ok := r.index[epc]
	if !ok {
		return ReportEntry{}, false
	}
	return r.Entries[pos], true
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// CollectReport runs inventory rounds for duration and aggregates the tags.
// Malformed rounds are counted and their partial tags kept; any other error
// stops the report.
func CollectReport(
	ctx context.Context, reader *uhf.Reader, duration time.Duration, opts ...uhf.InventoryOption,
) (*Report, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("report duration must be positive, got %v", duration)
	}

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	report := NewReport()
	for ctx.Err() == nil {
		tags, err := reader.GetInventoryContext(ctx, opts...)
		switch {
		case err == nil:
			report.Add(tags)
		case uhf.KindOf(err) == uhf.KindMalformedPayload:
			report.Errors++
			report.Add(tags)
		case errors.Is(err, uhf.ErrCanceled):
			return report, nil
		default:
			return report, fmt.Errorf("inventory round %d failed: %w", report.Rounds+1, err)
		}
	}
	return report, nil
}

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
	"bytes"
	"errors"
	"sort"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// FieldState is the presence state of the reader field
type FieldState int

const (
	// StateIdle means no tags are present
	StateIdle FieldState = iota
	// StateTagsPresent means at least one tag is present
	StateTagsPresent
	// StateWriting means a coordinated write is in progress; departures are held
	StateWriting
)

func (s FieldState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagsPresent:
		return "tags_present"
	case StateWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// ErrNoTagInPoll indicates an inventory round saw no tags (not an error condition)
var ErrNoTagInPoll = errors.New("no tag detected in polling cycle")

// TagState tracks one tag across inventory rounds
type TagState struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Tag       uhf.UhfTag
	SeenCount int
}

// Field tracks which tags are present, keyed by EPC
type Field struct {
	tags  map[string]*TagState
	state FieldState
}

// NewField creates an empty field
func NewField() *Field {
	return &Field{tags: make(map[string]*TagState)}
}

// State returns the field state
func (f *Field) State() FieldState {
	return f.state
}

// Len returns the number of present tags
func (f *Field) Len() int {
	return len(f.tags)
}

// Observe records one round of tags seen at now and returns the tags that
// were not present before. A tag seen twice in one round counts once.
func (f *Field) Observe(tags []uhf.UhfTag, now time.Time) []uhf.UhfTag {
	var arrived []uhf.UhfTag
	seen := make(map[string]bool, len(tags))
	for i := range tags {
		id := tags[i].ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		ts, ok := f.tags[id]
		if !ok {
			ts = &TagState{FirstSeen: now}
			f.tags[id] = ts
			arrived = append(arrived, tags[i])
		}
		ts.Tag = tags[i]
		ts.LastSeen = now
		ts.SeenCount++
	}
	if len(f.tags) > 0 && f.state == StateIdle {
		f.state = StateTagsPresent
	}
	return arrived
}

// Expire removes tags unseen for longer than timeout and returns them.
// Nothing departs while a write is in progress.
func (f *Field) Expire(now time.Time, timeout time.Duration) []TagState {
	if f.state == StateWriting {
		return nil
	}
	var departed []TagState
	for id, ts := range f.tags {
		if now.Sub(ts.LastSeen) > timeout {
			departed = append(departed, *ts)
			delete(f.tags, id)
		}
	}
	sortStates(departed)
	if len(f.tags) == 0 {
		f.state = StateIdle
	}
	return departed
}

// TransitionToWriting holds departures until TransitionFromWriting
func (f *Field) TransitionToWriting() {
	f.state = StateWriting
}

// TransitionFromWriting resumes normal presence tracking
func (f *Field) TransitionFromWriting() {
	if len(f.tags) == 0 {
		f.state = StateIdle
		return
	}
	f.state = StateTagsPresent
}

// Reset forgets every tag
func (f *Field) Reset() {
	f.tags = make(map[string]*TagState)
	f.state = StateIdle
}

// Snapshot returns copies of the present tags ordered by first sighting
func (f *Field) Snapshot() []TagState {
	out := make([]TagState, 0, len(f.tags))
	for _, ts := range f.tags {
		out = append(out, *ts)
	}
	sortStates(out)
	return out
}

func sortStates(states []TagState) {
	sort.Slice(states, func(i, j int) bool {
		if !states[i].FirstSeen.Equal(states[j].FirstSeen) {
			return states[i].FirstSeen.Before(states[j].FirstSeen)
		}
		return bytes.Compare(states[i].Tag.EPC, states[j].Tag.EPC) < 0
	})
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

// newSimulatedReader returns a reader answering from a virtual field
func newSimulatedReader(t *testing.T, tags ...*testutil.VirtualTag) (*uhf.Reader, *testutil.VirtualReader) {
	t.Helper()
	sim := testutil.NewVirtualReader(tags...)
	mock := uhf.NewMockTransport()
	mock.SetResponseFunc(sim.Handle)

	reader, err := uhf.New(mock,
		uhf.WithTimeout(100*time.Millisecond),
		uhf.WithMaxRetries(0),
		uhf.WithRetryBackoff(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader, sim
}

// fakeClock is a settable time source for Monitor
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestMonitor(t *testing.T, config *Config, tags ...*testutil.VirtualTag) (*Monitor, *testutil.VirtualReader, *fakeClock) {
	t.Helper()
	reader, sim := newSimulatedReader(t, tags...)
	m, err := NewMonitor(reader, config)
	require.NoError(t, err)

	clock := newFakeClock()
	m.now = clock.Now
	m.lastActive = clock.Now()
	return m, sim, clock
}

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

package uhf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

func TestGetSettings(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(testutil.CmdGetSettings, testutil.BuildSettingsResponse(testutil.Settings{
		Power: 7, Region: 1, QStart: 5, QMin: 2, QMax: 9, Flags: 0x05,
	}))
	reader := newTestReader(t, mock)

	s, err := reader.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 7, s.Power)
	assert.Equal(t, RegionFCC, s.Region)
	assert.Equal(t, QSettings{Start: 5, Min: 2, Max: 9}, s.Q)
	assert.Equal(t, InventorySettings{OnlyNewTags: true, WithTID: true}, s.Inventory)

	size, err := reader.GetTagSize()
	require.NoError(t, err)
	assert.Equal(t, 32, size)
}

func TestSettings_RoundTripThroughReader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader, sim, _ := newVirtualReader(t)

	require.NoError(t, reader.SetPowerContext(ctx, 9))
	power, err := reader.GetPowerContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, power)

	require.NoError(t, reader.SetRegionContext(ctx, RegionETSIHigh))
	region, err := reader.GetRegionContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, RegionETSIHigh, region)

	want := InventorySettings{WithRSSI: true, WithTID: true}
	require.NoError(t, reader.SetInventorySettingsContext(ctx, want))
	got, err := reader.GetInventorySettingsContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, byte(0x06), sim.Settings.Flags)
}

func TestSetPower_Range(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	reader := newTestReader(t, mock)

	require.ErrorIs(t, reader.SetPower(MaxPower+1), ErrEncoding)
	require.ErrorIs(t, reader.SetPower(MinPower-1), ErrInvalidParameter)
	require.ErrorIs(t, reader.SetRegion(Region(7)), ErrEncoding)
	assert.Equal(t, 0, mock.BytesWritten())
}

func TestSetPower_DeviceRejects(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(testutil.CmdSetPower, testutil.BuildStatusResponse(testutil.CmdSetPower, 0x09))
	reader := newTestReader(t, mock)

	err := reader.SetPower(3)
	status, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, StatusInvalidParameter, status)
}

func TestSettings_CanceledContextSendsNothing(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	reader := newTestReader(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, reader.SetPowerContext(ctx, 5), ErrCanceled)
	_, err := reader.GetRegionContext(ctx)
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, reader.KillContext(ctx, TagSelector{}, 0x01020304), ErrCanceled)
	assert.Equal(t, 0, mock.BytesWritten())
}

func TestSetTagSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		expected, lo, hi  int
		start, qmin, qmax byte
	}{
		{name: "single tag", expected: 1, start: 0, qmin: 0, qmax: 15},
		{name: "exact power of two", expected: 16, start: 4, qmin: 0, qmax: 15},
		{name: "rounds up", expected: 20, start: 5, qmin: 0, qmax: 15},
		{name: "bounded", expected: 100, lo: 4, hi: 32, start: 5, qmin: 2, qmax: 5},
		{name: "raised to minimum", expected: 2, lo: 64, start: 6, qmin: 6, qmax: 15},
		{name: "capped", expected: 1 << 20, start: 15, qmin: 0, qmax: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader, sim, _ := newVirtualReader(t)

			require.NoError(t, reader.SetTagSize(tt.expected, tt.lo, tt.hi))
			assert.Equal(t, tt.start, sim.Settings.QStart)
			assert.Equal(t, tt.qmin, sim.Settings.QMin)
			assert.Equal(t, tt.qmax, sim.Settings.QMax)
		})
	}
}

func TestSetTagSize_Invalid(t *testing.T) {
	t.Parallel()

	reader := newTestReader(t, NewMockTransport())
	ctx := context.Background()

	require.ErrorIs(t, reader.SetTagSizeContext(ctx, 0, 0, 0), ErrEncoding)
	require.ErrorIs(t, reader.SetTagSizeContext(ctx, 4, 16, 8), ErrEncoding)
	require.ErrorIs(t, reader.SetQContext(ctx, QSettings{Start: 3, Min: 4, Max: 8}), ErrEncoding)
	require.ErrorIs(t, reader.SetQContext(ctx, QSettings{Start: 3, Min: 0, Max: 16}), ErrEncoding)
}

func TestQFor(t *testing.T) {
	t.Parallel()

	cases := map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 1000: 10, 40000: 15}
	for n, want := range cases {
		assert.Equal(t, want, qFor(n), "n=%d", n)
	}
}

func TestParseRegion(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Region{"etsi": RegionETSI, " FCC ": RegionFCC, "etsi_high": RegionETSIHigh} {
		got, err := ParseRegion(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got.String())
	}
	_, err := ParseRegion("mars")
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, "Region(9)", Region(9).String())
}

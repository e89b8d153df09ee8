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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

// newVirtualReader wires a Reader to a simulated reader holding tags
func newVirtualReader(t *testing.T, tags ...*testutil.VirtualTag) (*Reader, *testutil.VirtualReader, *MockTransport) {
	t.Helper()
	sim := testutil.NewVirtualReader(tags...)
	mock := NewMockTransport()
	mock.SetResponseFunc(sim.Handle)
	return newTestReader(t, mock), sim, mock
}

type fakePower struct {
	err    error
	cycles int
}

func (p *fakePower) PowerCycle(context.Context) error {
	p.cycles++
	return p.err
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	tests := []struct {
		opt  Option
		name string
	}{
		{name: "zero timeout", opt: WithTimeout(0)},
		{name: "negative retries", opt: WithMaxRetries(-1)},
		{name: "equal markers", opt: WithFrameFormat(0x02, 0x02, 255)},
		{name: "payload bound too large", opt: WithFrameFormat(0x02, 0x03, 256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(NewMockTransport(), tt.opt)
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	t.Parallel()

	reader, err := New(NewMockTransport(),
		WithTimeout(250*time.Millisecond),
		WithMaxRetries(3),
		WithRetryBackoff(5*time.Millisecond),
		WithObserver(nil),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, reader.engine.timeout)
	assert.Equal(t, 4, reader.engine.retry.MaxAttempts)
	assert.Equal(t, 5*time.Millisecond, reader.engine.retry.InitialBackoff)
	assert.IsType(t, NopObserver{}, reader.engine.observer)
	assert.Equal(t, TransportMock, reader.Transport().Type())

	require.ErrorIs(t, reader.SetTimeout(-time.Second), ErrInvalidParameter)
	require.NoError(t, reader.SetTimeout(time.Second))
	assert.Equal(t, time.Second, reader.engine.timeout)

	reader.SetRetryConfig(&RetryConfig{MaxAttempts: 7})
	assert.Equal(t, 7, reader.engine.retry.MaxAttempts)
}

func TestReader_InitCachesInfo(t *testing.T) {
	t.Parallel()

	reader, _, _ := newVirtualReader(t)
	assert.Nil(t, reader.Info())

	require.NoError(t, reader.Init())
	info := reader.Info()
	require.NotNil(t, info)
	assert.Equal(t, "UHF-FW", info.Firmware)
	assert.Equal(t, "2.4.1", info.FirmwareVersion)
	assert.Equal(t, "UHF-M100 1.0 (firmware UHF-FW 2.4.1, serial SN0001)", info.String())
}

func TestReader_InitExpectedReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expected ExpectedReader
		name     string
		wantErr  bool
	}{
		{name: "matching hardware", expected: ExpectedReader{Hardware: "uhf-m100"}},
		{name: "wrong hardware", expected: ExpectedReader{Hardware: "R2000"}, wantErr: true},
		{name: "wrong firmware", expected: ExpectedReader{Firmware: "OTHER"}, wantErr: true},
		{name: "firmware new enough", expected: ExpectedReader{MinFirmwareVersion: "2.4"}},
		{name: "firmware too old", expected: ExpectedReader{MinFirmwareVersion: "2.10"}, wantErr: true},
		{name: "unparseable minimum", expected: ExpectedReader{MinFirmwareVersion: "latest"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := NewMockTransport()
			mock.SetResponseFunc(testutil.NewVirtualReader().Handle)
			reader := newTestReader(t, mock, WithExpectedReader(tt.expected))

			err := reader.Init()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnexpectedReader)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.3", "1.3", 0},
		{"1.3", "1.10", -1},
		{"01.02.07", "1.2", 1},
		{"v2.0", "2", 0},
	}
	for _, tt := range tests {
		got, err := compareVersions(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.a, tt.b)
	}

	_, err := compareVersions("", "1")
	require.Error(t, err)
	_, err = compareVersions("1.x", "1")
	require.Error(t, err)
}

func TestReader_MalformedReaderInfo(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	payload := testutil.ReaderInfoPayload("FW", "1.0", "HW")
	mock.SetResponse(testutil.CmdGetReaderInfo, testutil.Build(testutil.CmdGetReaderInfo+1, payload))
	reader := newTestReader(t, mock)

	_, err := reader.GetReaderInfo()
	require.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, reader.Info())
}

func TestReader_Reset(t *testing.T) {
	t.Parallel()

	t.Run("requires power controller", func(t *testing.T) {
		t.Parallel()
		reader := newTestReader(t, NewMockTransport())
		require.ErrorIs(t, reader.Reset(context.Background()), ErrInvalidParameter)
	})

	t.Run("power cycles and drops pending input", func(t *testing.T) {
		t.Parallel()
		power := &fakePower{}
		mock := NewMockTransport()
		reader := newTestReader(t, mock, WithPowerControl(power))

		mock.Inject([]byte{0x02, 0x00, 0x00})
		require.NoError(t, reader.Reset(context.Background()))
		assert.Equal(t, 1, power.cycles)

		leftover, err := mock.Read(16, 0)
		require.NoError(t, err)
		assert.Empty(t, leftover)
	})

	t.Run("power failure is reported", func(t *testing.T) {
		t.Parallel()
		power := &fakePower{err: errors.New("gpio busy")}
		reader := newTestReader(t, NewMockTransport(), WithPowerControl(power))
		require.Error(t, reader.Reset(context.Background()))
	})

	t.Run("closed reader", func(t *testing.T) {
		t.Parallel()
		reader := newTestReader(t, NewMockTransport(), WithPowerControl(&fakePower{}))
		require.NoError(t, reader.Close())
		require.ErrorIs(t, reader.Reset(context.Background()), ErrReaderClosed)
	})
}

func TestDebugLogger(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, Logger())

	SetDebugEnabled(true)
	debugf("debug %d", 1)
	debugln("debug", 2)
	SetDebugEnabled(false)
	assert.NotNil(t, Logger())
}

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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	transient := NewTransportError("read", "/dev/ttyUSB0", ErrTransportRead, ErrorTypeTransient)
	permanent := NewTransportError("read", "/dev/ttyUSB0", ErrTransportClosed, ErrorTypePermanent)

	return []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout retryable", err: ErrTransportTimeout, want: true},
		{name: "transport read retryable", err: ErrTransportRead, want: true},
		{name: "transport write retryable", err: ErrTransportWrite, want: true},
		{name: "transport closed not retryable", err: ErrTransportClosed, want: false},
		{name: "timeout kind retryable", err: newReaderError(KindTimeout, "Inventory", nil), want: true},
		{name: "frame kind retryable", err: newReaderError(KindFrame, "Inventory", nil), want: true},
		{name: "device kind not retryable", err: newDeviceError("WriteMemory", StatusMemoryLocked), want: false},
		{name: "encoding kind not retryable", err: newReaderError(KindEncoding, "WriteMemory", nil), want: false},
		{name: "malformed kind not retryable", err: newReaderError(KindMalformedPayload, "Inventory", nil), want: false},
		{name: "canceled kind not retryable", err: newReaderError(KindCanceled, "Inventory", nil), want: false},
		{name: "closed kind not retryable", err: newReaderError(KindClosed, "Inventory", nil), want: false},
		{name: "transient transport kind retryable", err: newReaderError(KindTransport, "Inventory", transient), want: true},
		{name: "permanent transport kind not retryable", err: newReaderError(KindTransport, "Inventory", permanent), want: false},
		{name: "wrapped timeout kind retryable",
			err: fmt.Errorf("outer: %w", newReaderError(KindTimeout, "ReadMemory", nil)), want: true},
		{name: "unrelated error not retryable", err: errors.New("boom"), want: false},
	}
}

func TestReaderError_ErrorsIs(t *testing.T) {
	t.Parallel()

	kinds := map[ErrorKind]error{
		KindEncoding:         ErrEncoding,
		KindFrame:            ErrFrame,
		KindTimeout:          ErrTimeout,
		KindDevice:           ErrDeviceError,
		KindMalformedPayload: ErrMalformedPayload,
		KindClosed:           ErrReaderClosed,
		KindCanceled:         ErrCanceled,
	}

	for kind, sentinel := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			err := newReaderError(kind, "Inventory", nil)
			require.ErrorIs(t, err, sentinel)
			for other, otherSentinel := range kinds {
				if other != kind {
					assert.NotErrorIs(t, err, otherSentinel)
				}
			}
			assert.Equal(t, kind, KindOf(err))
		})
	}
}

func TestReaderError_WrapsCause(t *testing.T) {
	t.Parallel()

	cause := NewTransportError("write", "/dev/ttyUSB0", ErrTransportWrite, ErrorTypeTransient)
	err := newReaderError(KindTransport, "WriteMemory", cause)

	require.ErrorIs(t, err, ErrTransportWrite)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/dev/ttyUSB0", te.Port)

	canceled := newReaderError(KindCanceled, "Inventory", context.Canceled)
	require.ErrorIs(t, canceled, context.Canceled)
	require.ErrorIs(t, canceled, ErrCanceled)
}

func TestReaderError_Message(t *testing.T) {
	t.Parallel()

	err := newDeviceError("WriteMemory", StatusMemoryLocked)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "WriteMemory: DeviceError"), msg)
	assert.Contains(t, msg, "0x04")

	status, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, StatusMemoryLocked, status)

	_, ok = StatusOf(newReaderError(KindTimeout, "Inventory", nil))
	assert.False(t, ok)
	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindOf_NonReaderError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "transport timeout error", err: NewTimeoutError("read", "mock"), want: ErrorTypeTimeout},
		{name: "transport closed error", err: NewTransportClosedError("read", "mock"), want: ErrorTypePermanent},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: ErrorTypeTimeout},
		{name: "read sentinel", err: ErrTransportRead, want: ErrorTypeTransient},
		{name: "unknown", err: errors.New("x"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()

	err := NewTransportError("read", "/dev/ttyUSB0", ErrTransportRead, ErrorTypeTransient)
	assert.Equal(t, "read /dev/ttyUSB0: transport read failed", err.Error())
	assert.True(t, err.Retryable)

	noPort := NewTransportError("write", "", ErrTransportWrite, ErrorTypePermanent)
	assert.Equal(t, "write: transport write failed", noPort.Error())
	assert.False(t, noPort.Retryable)
	assert.Equal(t, "permanent", noPort.Type.String())
}

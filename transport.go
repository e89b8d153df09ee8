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

import "time"

// Transport is the byte stream to a reader. Implementations deliver bytes in
// order and are used by one goroutine at a time; the Reader serializes access.
type Transport interface {
	// Write sends data and returns the number of bytes written
	Write(data []byte) (int, error)

	// Read returns up to maxBytes, waiting at most timeout for the first byte.
	// An empty slice with a nil error means the timeout elapsed.
	Read(maxBytes int, timeout time.Duration) ([]byte, error)

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportCapability represents optional behaviors of a transport
type TransportCapability string

const (
	// CapabilityInputFlush indicates the transport can drop unread input
	// through InputFlusher without a timed read.
	CapabilityInputFlush TransportCapability = "input_flush"
)

// TransportCapabilityChecker is implemented by transports that advertise capabilities
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// InputFlusher discards bytes received but not yet read
type InputFlusher interface {
	ResetInput() error
}

func hasCapability(t Transport, capability TransportCapability) bool {
	if checker, ok := t.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	return false
}

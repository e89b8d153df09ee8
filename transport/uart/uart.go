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

// Package uart implements the reader byte transport over a serial port
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/frame"
	"github.com/ZaparooProject/go-uhf/internal/transport"
)

// Default serial settings for the reader's UART (115200 8N1)
const (
	DefaultBaudRate    = 115200
	DefaultOpenTimeout = 2 * time.Second
	openRetryInterval  = 100 * time.Millisecond
	writeRetries       = 3
)

// port is the subset of serial.Port the transport uses
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// Config holds serial port settings
type Config struct {
	BaudRate    int
	OpenTimeout time.Duration
}

// Option configures a Transport
type Option func(*Config)

// WithBaudRate sets the serial baud rate
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		c.BaudRate = baud
	}
}

// WithOpenTimeout bounds how long New keeps retrying a busy port
func WithOpenTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = timeout
	}
}

// Transport implements uhf.Transport over a serial port
type Transport struct {
	port        port
	portName    string
	readTimeout time.Duration
	mu          sync.Mutex
	timeoutSet  bool
}

// New opens portName. A port that is briefly busy after enumeration is
// retried until the open timeout elapses.
func New(portName string, opts ...Option) (*Transport, error) {
	config := Config{BaudRate: DefaultBaudRate, OpenTimeout: DefaultOpenTimeout}
	for _, opt := range opts {
		opt(&config)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := transport.TimeoutRetry(context.Background(), config.OpenTimeout, openRetryInterval, "open",
		func() (serial.Port, bool, error) {
			p, err := serial.Open(portName, mode)
			if err == nil {
				return p, false, nil
			}
			if isBusy(err) {
				return nil, true, nil
			}
			return nil, false, err
		})
	if err != nil {
		return nil, uhf.NewTransportError("open", portName, err, uhf.ErrorTypePermanent)
	}

	return newWithPort(portName, p), nil
}

func newWithPort(portName string, p port) *Transport {
	return &Transport{port: p, portName: portName}
}

func isBusy(err error) bool {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return false
	}
	return portErr.Code() == serial.PortBusy
}

func isClosed(err error) bool {
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortClosed
}

// Write sends data, continuing after short writes
func (t *Transport) Write(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, uhf.NewTransportClosedError("write", t.portName)
	}

	written := 0
	_, err := transport.WithRetry(context.Background(), transport.RetryConfig{
		Description: "write",
		Port:        t.portName,
		MaxRetries:  writeRetries,
		Exhausted:   uhf.ErrTransportWrite,
	}, func() (struct{}, bool, error) {
		n, err := t.port.Write(data[written:])
		written += n
		if err != nil {
			return struct{}{}, false, t.wrapError("write", err, uhf.ErrTransportWrite)
		}
		return struct{}{}, written < len(data), nil
	})
	return written, err
}

// Read returns up to maxBytes, waiting at most timeout for data.
// A timeout yields an empty slice and a nil error.
func (t *Transport) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, uhf.NewTransportClosedError("read", t.portName)
	}
	if maxBytes <= 0 {
		return nil, nil
	}

	if !t.timeoutSet || timeout != t.readTimeout {
		if err := t.port.SetReadTimeout(timeout); err != nil {
			return nil, t.wrapError("set read timeout", err, uhf.ErrTransportRead)
		}
		t.readTimeout = timeout
		t.timeoutSet = true
	}

	buf := frame.GetBuffer(maxBytes)
	defer frame.PutBuffer(buf)

	n, err := t.port.Read(buf)
	if err != nil {
		return nil, t.wrapError("read", err, uhf.ErrTransportRead)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (t *Transport) wrapError(op string, err, sentinel error) error {
	if isClosed(err) {
		return uhf.NewTransportError(op, t.portName, fmt.Errorf("%w: %w", uhf.ErrTransportClosed, err),
			uhf.ErrorTypePermanent)
	}
	return uhf.NewTransportError(op, t.portName, fmt.Errorf("%w: %w", sentinel, err), uhf.ErrorTypeTransient)
}

// ResetInput discards bytes received but not yet read
func (t *Transport) ResetInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return uhf.NewTransportClosedError("reset input", t.portName)
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return t.wrapError("reset input", err, uhf.ErrTransportRead)
	}
	return nil
}

// HasCapability reports optional transport behaviors
func (*Transport) HasCapability(capability uhf.TransportCapability) bool {
	return capability == uhf.CapabilityInputFlush
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() uhf.TransportType {
	return uhf.TransportUART
}

// PortName returns the serial port path
func (t *Transport) PortName() string {
	return t.portName
}

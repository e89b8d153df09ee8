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
	"time"

	"github.com/ZaparooProject/go-uhf/detection"
)

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectReader
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for reader connection
type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	detectOptions          *detection.Options
	readerOptions          []Option
	timeout                time.Duration
	autoDetect             bool
	skipInit               bool
}

// WithAutoDetection enables automatic port detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDetectionOptions overrides the options used for auto-detection
func WithDetectionOptions(opts detection.Options) ConnectOption {
	return func(c *connectConfig) error {
		c.detectOptions = &opts
		return nil
	}
}

// WithReaderOptions adds reader-level options
func WithReaderOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.readerOptions = append(c.readerOptions, opts...)
		return nil
	}
}

// WithConnectTimeout bounds the Init exchange performed while connecting
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: connect timeout must be positive", ErrInvalidParameter)
		}
		c.timeout = timeout
		return nil
	}
}

// WithoutInit skips the reader info check performed after connecting
func WithoutInit() ConnectOption {
	return func(c *connectConfig) error {
		c.skipInit = true
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}
	return config, nil
}

// ConnectReader opens a transport for path, or for the first detected port
// when path is empty or auto-detection is enabled, and initializes a Reader
// on it.
//
// Example usage:
//
//	reader, err := uhf.ConnectReader("/dev/ttyUSB0",
//	    uhf.WithTransportFactory(func(path string) (uhf.Transport, error) {
//	        return uart.New(path)
//	    }))
func ConnectReader(ctx context.Context, path string, opts ...ConnectOption) (*Reader, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	transport, err := createTransport(ctx, path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	reader, err := New(transport, config.readerOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}

	if !config.skipInit {
		initCtx, cancel := context.WithTimeout(ctx, config.timeout)
		defer cancel()
		if err := reader.InitContext(initCtx); err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("failed to initialize reader: %w", err)
		}
	}
	return reader, nil
}

func createTransport(ctx context.Context, path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(ctx, config)
	}
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}
	transport, err := config.transportFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

func createAutoDetectedTransport(ctx context.Context, config *connectConfig) (Transport, error) {
	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := detection.DefaultOptions()
	if config.detectOptions != nil {
		opts = *config.detectOptions
	}

	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect readers: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}

	debugf("connecting to detected reader at %s", devices[0].Path)
	return config.transportDeviceFactory(devices[0])
}

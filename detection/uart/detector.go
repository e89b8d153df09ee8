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

// Package uart detects USB-serial ports that may host a UHF reader.
// Importing the package registers its detector.
package uart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/detection"
	uarttransport "github.com/ZaparooProject/go-uhf/transport/uart"
)

// portLister enumerates serial ports; replaced in tests
type portLister func() ([]*enumerator.PortDetails, error)

// prober opens path and asks for reader info; replaced in tests
type prober func(ctx context.Context, path string, opts *detection.Options) (*uhf.ReaderInfo, error)

// detector implements the Detector interface for serial ports
type detector struct {
	list   portLister
	probe  prober
	access func(path string) error
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{
		list:   enumerator.GetDetailedPortsList,
		probe:  probeReader,
		access: checkAccess,
	}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(uhf.TransportUART)
}

// Detect lists serial ports and narrows them according to opts.Mode
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return devices, fmt.Errorf("detection interrupted: %w", err)
		}

		info, ok := candidate(port, opts)
		if !ok {
			continue
		}

		if opts.Mode >= detection.Safe {
			if err := d.access(info.Path); err != nil {
				continue
			}
		}

		if opts.Mode == detection.Full {
			reader, err := d.probe(ctx, info.Path, opts)
			if err != nil {
				continue
			}
			info.Metadata["hardware"] = reader.Hardware
			info.Metadata["firmware"] = reader.Firmware + " " + reader.FirmwareVersion
			info.Metadata["serial_number"] = reader.SerialNumber
		}

		devices = append(devices, info)
	}
	return devices, nil
}

// candidate converts an enumerated port and applies the ID filters
func candidate(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	info := detection.DeviceInfo{
		Transport: string(uhf.TransportUART),
		Path:      port.Name,
		Name:      port.Product,
		Metadata:  map[string]string{},
	}
	if port.IsUSB {
		info.VIDPID = detection.NormalizeVIDPID(port.VID + ":" + port.PID)
		if port.SerialNumber != "" {
			info.Metadata["usb_serial"] = port.SerialNumber
		}
	}

	if detection.IsPathIgnored(info.Path, opts.IgnorePaths) {
		return info, false
	}
	if info.VIDPID != "" && detection.IsBlocked(info.VIDPID, opts.Blocklist) {
		return info, false
	}

	switch opts.Mode {
	case detection.Passive:
		return info, port.IsUSB || !isBuiltinPort(info.Path)
	case detection.Safe:
		return info, detection.IsKnown(info.VIDPID, opts.KnownVIDPIDs)
	default:
		return info, port.IsUSB
	}
}

// isBuiltinPort reports on-board UARTs that never host a USB reader
func isBuiltinPort(path string) bool {
	for _, prefix := range []string{"/dev/ttyS", "/dev/ttyAMA", "/dev/cu.Bluetooth", "/dev/tty.Bluetooth"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func probeReader(ctx context.Context, path string, opts *detection.Options) (*uhf.ReaderInfo, error) {
	transport, err := uarttransport.New(path)
	if err != nil {
		return nil, err
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = uhf.DefaultTimeout
	}
	reader, err := uhf.New(transport, uhf.WithTimeout(timeout), uhf.WithMaxRetries(0))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	info, err := reader.GetReaderInfoContext(ctx)
	if err != nil {
		return nil, errors.Join(detection.ErrNoDevicesFound, err)
	}
	return info, nil
}

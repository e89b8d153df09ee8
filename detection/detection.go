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

// Package detection finds serial ports that may host a UHF reader.
//
// Transport-specific detectors register themselves on import:
//
//	import _ "github.com/ZaparooProject/go-uhf/detection/uart"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector found a candidate port
	ErrNoDevicesFound = errors.New("no devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run on this OS
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrNoDetectors is returned when no detector has been registered
	ErrNoDetectors = errors.New("no detectors registered")
)

// Mode controls how aggressively detectors look for readers
type Mode int

const (
	// Passive lists every candidate port without opening any of them
	Passive Mode = iota
	// Safe lists only ports whose USB IDs match known reader bridges and
	// that the current user can open
	Safe
	// Full opens each accessible port and asks it for reader info
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "passive", "safe" or "full"
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Passive, Safe, Full} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown detection mode %q", s)
}

// DeviceInfo describes one detected candidate port
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Name      string
	VIDPID    string
}

func (d DeviceInfo) String() string {
	if d.VIDPID != "" {
		return fmt.Sprintf("%s %s [%s]", d.Transport, d.Path, d.VIDPID)
	}
	return d.Transport + " " + d.Path
}

// Options configures detection
type Options struct {
	// KnownVIDPIDs lists USB bridges used by supported readers (VID:PID)
	KnownVIDPIDs []string
	// Blocklist lists USB devices that must never be opened (VID:PID)
	Blocklist []string
	// IgnorePaths lists port paths to skip
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// ProbeTimeout bounds a single Full-mode probe
	ProbeTimeout time.Duration
	// Mode selects how far detection goes
	Mode Mode
}

// DefaultOptions returns Safe-mode options with the default ID lists
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		Timeout:      5 * time.Second,
		ProbeTimeout: 500 * time.Millisecond,
		KnownVIDPIDs: DefaultKnownVIDPIDs(),
		Blocklist:    DefaultBlocklist(),
	}
}

// Detector finds candidate devices for one transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	detectorsMu sync.RWMutex
	detectors   []Detector
)

// RegisterDetector adds d to the registry. Registering a second detector for
// the same transport replaces the first.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	for i, existing := range detectors {
		if existing.Transport() == d.Transport() {
			detectors[i] = d
			return
		}
	}
	detectors = append(detectors, d)
}

func registered() []Detector {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()
	return append([]Detector(nil), detectors...)
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector with context support.
// A detector reporting ErrUnsupportedPlatform is skipped; any other failure
// is returned only if no detector found anything.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}

	ds := registered()
	if len(ds) == 0 {
		return nil, ErrNoDetectors
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		all  []DeviceInfo
		errs []error
	)
	for _, d := range ds {
		found, err := d.Detect(ctx, opts)
		if err != nil {
			if errors.Is(err, ErrUnsupportedPlatform) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			continue
		}
		all = append(all, filter(found, opts)...)
	}

	if len(all) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}
	return all, nil
}

// filter drops blocked and ignored devices regardless of what a detector reported
func filter(devices []DeviceInfo, opts *Options) []DeviceInfo {
	out := devices[:0]
	for _, d := range devices {
		if IsPathIgnored(d.Path, opts.IgnorePaths) {
			continue
		}
		if d.VIDPID != "" && IsBlocked(d.VIDPID, opts.Blocklist) {
			continue
		}
		out = append(out, d)
	}
	return out
}

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

package detection

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultKnownVIDPIDs returns the USB-serial bridges found on supported
// reader modules and their evaluation boards.
func DefaultKnownVIDPIDs() []string {
	return []string{
		"0403:6001", // FTDI FT232R
		"0403:6015", // FTDI FT231X
		"10C4:EA60", // Silicon Labs CP210x
		"1A86:7523", // WCH CH340
		"2E8A:000A", // RP2040 CDC bridge
	}
}

// DefaultBlocklist returns USB devices that must not be opened during
// detection. Format: VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link CDC, a debug probe console
		"0483:374B", // ST-LINK/V2-1 virtual COM port
	}
}

// NormalizeVIDPID returns vidpid as four upper-case hex digits on each side
// of the colon, or "" if it is not a VID:PID pair.
func NormalizeVIDPID(vidpid string) string {
	vid, pid, ok := strings.Cut(strings.TrimSpace(vidpid), ":")
	if !ok {
		return ""
	}
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return ""
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", v, p)
}

// IsBlocked checks if a USB device is in the blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	return containsVIDPID(blocklist, vidpid)
}

// IsKnown checks if a USB device is one of the known reader bridges
func IsKnown(vidpid string, known []string) bool {
	return containsVIDPID(known, vidpid)
}

func containsVIDPID(list []string, vidpid string) bool {
	want := NormalizeVIDPID(vidpid)
	if want == "" {
		return false
	}
	return slices.ContainsFunc(list, func(entry string) bool {
		return NormalizeVIDPID(entry) == want
	})
}

var (
	vidPattern = regexp.MustCompile(`(?i)\b(?:VID|VENDOR|IDVENDOR)\s*[:=_]\s*(?:0X)?([0-9A-F]{1,4})\b`)
	pidPattern = regexp.MustCompile(`(?i)\b(?:PID|PRODUCT|IDPRODUCT)\s*[:=_]\s*(?:0X)?([0-9A-F]{1,4})\b`)
)

// ParseVIDPID extracts VID:PID from USB descriptor strings such as
// "VID:1234 PID:5678", "USB VID_0403&PID_6001", "vendor=1a86 product=7523"
// or a bare "0403:6001".
func ParseVIDPID(descriptor string) string {
	if bare := NormalizeVIDPID(descriptor); bare != "" {
		return bare
	}

	vid := vidPattern.FindStringSubmatch(descriptor)
	pid := pidPattern.FindStringSubmatch(descriptor)
	if vid == nil || pid == nil {
		return ""
	}
	return NormalizeVIDPID(vid[1] + ":" + pid[1])
}

// IsPathIgnored checks if a device path should be ignored.
// Paths are compared after cleaning and case folding.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore != "" && normalizedPath(ignore) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

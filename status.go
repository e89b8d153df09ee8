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

import "fmt"

// Status is the status byte carried by reader responses. Zero is success.
type Status byte

// Reader status codes
const (
	StatusOK                Status = 0x00
	StatusNoTag             Status = 0x01
	StatusAccessError       Status = 0x02
	StatusMemoryOverrun     Status = 0x03
	StatusMemoryLocked      Status = 0x04
	StatusInsufficientPower Status = 0x05
	StatusAntennaError      Status = 0x06
	StatusCRCError          Status = 0x07
	StatusUnknownCommand    Status = 0x08
	StatusInvalidParameter  Status = 0x09
	StatusWrongPassword     Status = 0x0A
	StatusMultipleTags      Status = 0x0B
	StatusIncompleteWrite   Status = 0x0C
	StatusNotSupported      Status = 0x0D
	StatusOther             Status = 0xFF
)

var statusNames = map[Status]string{
	StatusOK:                "OK",
	StatusNoTag:             "no tag",
	StatusAccessError:       "access error",
	StatusMemoryOverrun:     "memory overrun",
	StatusMemoryLocked:      "memory locked",
	StatusInsufficientPower: "insufficient power",
	StatusAntennaError:      "antenna error",
	StatusCRCError:          "tag CRC error",
	StatusUnknownCommand:    "unknown command",
	StatusInvalidParameter:  "invalid parameter",
	StatusWrongPassword:     "wrong password",
	StatusMultipleTags:      "multiple tags in field",
	StatusIncompleteWrite:   "incomplete write",
	StatusNotSupported:      "not supported",
	StatusOther:             "other error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status 0x%02X", byte(s))
}

// OK reports whether s is the success status
func (s Status) OK() bool {
	return s == StatusOK
}

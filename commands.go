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

// Reader command codes. Each response code is the request code plus one,
// except inventory which streams tag frames before its terminal frame.
const (
	cmdGetReaderInfo        = 0x10
	cmdInventory            = 0x20
	cmdReadMemory           = 0x30
	cmdWriteMemory          = 0x32
	cmdGetSettings          = 0x40
	cmdSetPower             = 0x42
	cmdSetRegion            = 0x44
	cmdSetQ                 = 0x46
	cmdSetInventorySettings = 0x48
	cmdLock                 = 0x50
	cmdKill                 = 0x52
	cmdSetPassword          = 0x54
)

// Response codes
const (
	respReaderInfo   = 0x11
	respInventoryTag = 0x21
	respInventoryEnd = 0x22
	respError        = 0x7F
)

// Lock actions carried in the lock request
const (
	lockActionLock      byte = 0x00
	lockActionUnlock    byte = 0x01
	lockActionPermanent byte = 0x02
)

// Password selectors for the set-password request
const (
	passwordAccess byte = 0x00
	passwordKill   byte = 0x01
)

func responseCode(cmd byte) byte {
	return cmd + 1
}

var commandNames = map[byte]string{
	cmdGetReaderInfo:        "GetReaderInfo",
	cmdInventory:            "Inventory",
	cmdReadMemory:           "ReadMemory",
	cmdWriteMemory:          "WriteMemory",
	cmdGetSettings:          "GetSettings",
	cmdSetPower:             "SetPower",
	cmdSetRegion:            "SetRegion",
	cmdSetQ:                 "SetQ",
	cmdSetInventorySettings: "SetInventorySettings",
	cmdLock:                 "Lock",
	cmdKill:                 "Kill",
	cmdSetPassword:          "SetPassword",
}

func commandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "Unknown"
}

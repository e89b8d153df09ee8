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

package testing

import (
	"encoding/binary"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Command bytes for reference
const (
	CmdGetReaderInfo        = 0x10
	CmdInventory            = 0x20
	CmdReadMemory           = 0x30
	CmdWriteMemory          = 0x32
	CmdGetSettings          = 0x40
	CmdSetPower             = 0x42
	CmdSetRegion            = 0x44
	CmdSetQ                 = 0x46
	CmdSetInventorySettings = 0x48
	CmdLock                 = 0x50
	CmdKill                 = 0x52
	CmdSetPassword          = 0x54

	RespInventoryTag = 0x21
	RespInventoryEnd = 0x22
	RespError        = 0x7F
)

// Status bytes used by the builders
const (
	StatusOK            = 0x00
	StatusNoTag         = 0x01
	StatusMemoryOverrun = 0x03
	StatusMemoryLocked  = 0x04
	StatusWrongPassword = 0x0A
)

// Sample tag identities
var (
	// TestEPC1 is a 96-bit EPC
	TestEPC1 = []byte{0xE2, 0x00, 0x00, 0x17, 0x22, 0x0B, 0x01, 0x23, 0x17, 0x60, 0x8A, 0x01}

	// TestEPC2 is a second 96-bit EPC
	TestEPC2 = []byte{0xE2, 0x00, 0x00, 0x17, 0x22, 0x0B, 0x01, 0x23, 0x17, 0x60, 0x8A, 0x02}

	// TestTID is a sample TID bank prefix
	TestTID = []byte{0xE2, 0x80, 0x11, 0x05, 0x20, 0x00, 0x7C, 0x4F}
)

// Build encodes a frame with the default format. The payload must fit.
func Build(cmd byte, payload []byte) []byte {
	wire, err := frame.Encode(cmd, payload)
	if err != nil {
		panic(err)
	}
	return wire
}

// TagPayload builds an inventory tag payload. A nil rssi or tid omits the field.
func TagPayload(epc []byte, rssi *int8, tid []byte) []byte {
	var flags byte
	if rssi != nil {
		flags |= 0x01
	}
	if tid != nil {
		flags |= 0x02
	}
	out := []byte{flags, byte(len(epc))}
	out = append(out, epc...)
	if rssi != nil {
		out = append(out, byte(*rssi))
	}
	if tid != nil {
		out = append(out, byte(len(tid)))
		out = append(out, tid...)
	}
	return out
}

// BuildTagFrame creates one inventory tag notification frame
func BuildTagFrame(epc []byte, rssi *int8, tid []byte) []byte {
	return Build(RespInventoryTag, TagPayload(epc, rssi, tid))
}

// BuildInventoryEnd creates the terminal frame of an inventory round
func BuildInventoryEnd(status byte, count uint16, antenna byte) []byte {
	return Build(RespInventoryEnd, []byte{status, byte(count >> 8), byte(count), antenna})
}

// BuildInventory creates a complete round reporting epcs without RSSI or TID
func BuildInventory(epcs ...[]byte) []byte {
	var out []byte
	for _, epc := range epcs {
		out = append(out, BuildTagFrame(epc, nil, nil)...)
	}
	return append(out, BuildInventoryEnd(StatusOK, uint16(len(epcs)), 1)...)
}

// BuildReadResponse creates a successful read response carrying data
func BuildReadResponse(data []byte) []byte {
	return Build(CmdReadMemory+1, append([]byte{StatusOK}, data...))
}

// BuildWriteAck creates a write acknowledgement for words written
func BuildWriteAck(words byte) []byte {
	return Build(CmdWriteMemory+1, []byte{StatusOK, words})
}

// BuildAck creates a bare success acknowledgement for cmd
func BuildAck(cmd byte) []byte {
	return Build(cmd+1, []byte{StatusOK})
}

// BuildStatusResponse creates a response for cmd carrying only status
func BuildStatusResponse(cmd, status byte) []byte {
	return Build(cmd+1, []byte{status})
}

// BuildErrorFrame creates the generic error response for cmd
func BuildErrorFrame(cmd, status byte) []byte {
	return Build(RespError, []byte{cmd, status})
}

// ReaderInfoPayload builds [status] followed by the length-prefixed
// firmware, firmware version, hardware, hardware version and serial fields
func ReaderInfoPayload(fields ...string) []byte {
	out := []byte{StatusOK}
	for _, f := range fields {
		out = append(out, byte(len(f)))
		out = append(out, f...)
	}
	return out
}

// BuildReaderInfoResponse creates a GetReaderInfo response for a sample reader
func BuildReaderInfoResponse() []byte {
	return Build(CmdGetReaderInfo+1, ReaderInfoPayload("UHF-FW", "2.4.1", "UHF-M100", "1.0", "SN0001"))
}

// Settings mirrors the settings response fields
type Settings struct {
	Power  byte
	Region byte
	QStart byte
	QMin   byte
	QMax   byte
	Flags  byte
}

// BuildSettingsResponse creates a GetSettings response
func BuildSettingsResponse(s Settings) []byte {
	return Build(CmdGetSettings+1, []byte{StatusOK, s.Power, s.Region, s.QStart, s.QMin, s.QMax, s.Flags})
}

// Word returns a big-endian 16-bit word
func Word(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// Int8 returns a pointer to v, for RSSI fields
func Int8(v int8) *int8 {
	return &v
}

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

// Package frame provides frame encoding, decoding and checksum helpers for
// the UHF reader serial protocol.
//
// Wire layout:
//
//	[START][LEN][LCS][CMD][PAYLOAD...][DCS][END]
//
// LEN is the payload length, LCS its two's complement, DCS the two's
// complement of the byte sum of CMD and PAYLOAD. Frames are delimited by the
// length field; START and END are checked positionally and are never escaped.
package frame

// Frame markers
const (
	StartByte = 0x02 // Start of frame (STX)
	EndByte   = 0x03 // End of frame (ETX)
)

// Frame size limits
const (
	MaxPayloadLength = 255 // LEN is a single byte
	HeaderLength     = 4   // START + LEN + LCS + CMD
	TrailerLength    = 2   // DCS + END
	MinFrameLength   = HeaderLength + TrailerLength
	MaxFrameLength   = MinFrameLength + MaxPayloadLength
)

// Format describes the substitutable constants of the wire format. The
// vendor protocol document is authoritative; DefaultFormat matches the
// firmware this driver was written against.
type Format struct {
	Start      byte
	End        byte
	MaxPayload int
}

// DefaultFormat is the frame format used unless a reader is configured otherwise
var DefaultFormat = Format{
	Start:      StartByte,
	End:        EndByte,
	MaxPayload: MaxPayloadLength,
}

// PayloadLimit returns the largest payload a frame of this format carries
func (f Format) PayloadLimit() int {
	return f.maxPayload()
}

func (f Format) maxPayload() int {
	if f.MaxPayload <= 0 || f.MaxPayload > MaxPayloadLength {
		return MaxPayloadLength
	}
	return f.MaxPayload
}

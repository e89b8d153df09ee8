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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNeedMoreData means the buffer holds a valid-so-far prefix of a frame
var ErrNeedMoreData = errors.New("frame: need more data")

// ErrPayloadTooLarge is returned by Encode when the payload exceeds the format bound
var ErrPayloadTooLarge = errors.New("frame: payload too large")

// ErrorKind classifies a decode failure
type ErrorKind int

const (
	// BadChecksum means LCS or DCS did not match
	BadChecksum ErrorKind = iota + 1
	// BadEndMarker means the byte after DCS was not the end marker
	BadEndMarker
	// LengthOverflow means LEN exceeds the format's payload bound
	LengthOverflow
	// FalseStart means a start marker was skipped because a complete frame
	// follows it inside its declared length
	FalseStart
)

func (k ErrorKind) String() string {
	switch k {
	case BadChecksum:
		return "bad checksum"
	case BadEndMarker:
		return "bad end marker"
	case LengthOverflow:
		return "length overflow"
	case FalseStart:
		return "false start"
	default:
		return fmt.Sprintf("frame error %d", int(k))
	}
}

// Error is a decode failure for data provably inconsistent with the format
type Error struct {
	Kind   ErrorKind
	Offset int // offset of the offending start marker in the decoded buffer
}

func (e *Error) Error() string {
	return fmt.Sprintf("frame: %s at offset %d", e.Kind, e.Offset)
}

// IsFrameError reports whether err is a decode failure of the given kind.
// A zero kind matches any frame error.
func IsFrameError(err error, kind ErrorKind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return kind == 0 || fe.Kind == kind
}

// Frame is one decoded frame. Payload never aliases the decode buffer.
type Frame struct {
	Payload []byte
	Command byte
}

// Status returns the first payload byte, which carries the status code
// in every status-bearing response.
func (f Frame) Status() (byte, bool) {
	if len(f.Payload) == 0 {
		return 0, false
	}
	return f.Payload[0], true
}

// Encode builds the wire bytes for cmd and payload using DefaultFormat
func Encode(cmd byte, payload []byte) ([]byte, error) {
	return DefaultFormat.Encode(cmd, payload)
}

// Decode decodes one frame from buf using DefaultFormat
func Decode(buf []byte) (Frame, int, error) {
	return DefaultFormat.Decode(buf)
}

// Encode builds the wire bytes for cmd and payload
func (f Format) Encode(cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > f.maxPayload() {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), f.maxPayload())
	}

	length := byte(len(payload))
	out := make([]byte, 0, MinFrameLength+len(payload))
	out = append(out, f.Start, length, CalculateLengthChecksum(length), cmd)
	out = append(out, payload...)
	out = append(out, CalculateDataChecksum(cmd, payload), f.End)
	return out, nil
}

// Decode scans buf for the start marker and decodes the frame that follows.
//
// The returned count is the number of bytes the caller may discard. It is
// non-zero together with ErrNeedMoreData when garbage precedes the start
// marker, and on a frame error it covers everything up to and including the
// offending start marker so the next call resynchronizes on the following one.
func (f Format) Decode(buf []byte) (Frame, int, error) {
	start := bytes.IndexByte(buf, f.Start)
	if start < 0 {
		return Frame{}, len(buf), ErrNeedMoreData
	}

	rest := buf[start:]
	if len(rest) < 3 {
		return Frame{}, start, ErrNeedMoreData
	}

	length := rest[1]
	if length+rest[2] != 0 {
		return Frame{}, start + 1, &Error{Kind: BadChecksum, Offset: start}
	}
	if int(length) > f.maxPayload() {
		return Frame{}, start + 1, &Error{Kind: LengthOverflow, Offset: start}
	}

	total := MinFrameLength + int(length)
	if len(rest) < total {
		return Frame{}, start, ErrNeedMoreData
	}

	cmd := rest[3]
	body := rest[HeaderLength : HeaderLength+int(length)]
	if CalculateDataChecksum(cmd, body) != rest[total-2] {
		return Frame{}, start + 1, &Error{Kind: BadChecksum, Offset: start}
	}
	if rest[total-1] != f.End {
		return Frame{}, start + 1, &Error{Kind: BadEndMarker, Offset: start}
	}

	payload := make([]byte, len(body))
	copy(payload, body)
	return Frame{Command: cmd, Payload: payload}, start + total, nil
}

// NextFrame returns the offset of the first start marker after buf[0] that
// begins a complete frame with valid checksums, or -1 if there is none.
func (f Format) NextFrame(buf []byte) int {
	for i := 1; i < len(buf); i++ {
		next := bytes.IndexByte(buf[i:], f.Start)
		if next < 0 {
			return -1
		}
		i += next
		if _, _, err := f.Decode(buf[i:]); err == nil {
			return i
		}
	}
	return -1
}

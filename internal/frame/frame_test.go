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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Layout(t *testing.T) {
	t.Parallel()

	got, err := Encode(0x30, []byte{0x03, 0x00, 0x00, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x04, 0xFC, 0x30, 0x03, 0x00, 0x00, 0x04, 0xC9, 0x03}, got)

	empty, err := Encode(0x10, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x10, 0xF0, 0x03}, empty)
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	t.Parallel()

	_, err := Encode(0x32, make([]byte, MaxPayloadLength+1))
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	small := Format{Start: StartByte, End: EndByte, MaxPayload: 8}
	_, err = small.Encode(0x32, make([]byte, 9))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	lengths := []int{0, 1, 2, 12, 64, 254, MaxPayloadLength}
	for _, cmd := range []byte{0x00, 0x02, 0x03, 0x20, 0x7F, 0xFF} {
		for _, n := range lengths {
			payload := make([]byte, n)
			for i := range payload {
				payload[i] = byte(i*7) ^ cmd
			}

			wire, err := Encode(cmd, payload)
			require.NoError(t, err)

			got, consumed, err := Decode(wire)
			require.NoError(t, err, "cmd=%#02x len=%d", cmd, n)
			assert.Equal(t, len(wire), consumed)
			assert.Equal(t, cmd, got.Command)
			assert.True(t, bytes.Equal(payload, got.Payload), "cmd=%#02x len=%d", cmd, n)
		}
	}
}

func TestDecode_PayloadDoesNotAliasBuffer(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x31, []byte{0x00, 0xAA, 0xBB})
	require.NoError(t, err)

	got, _, err := Decode(wire)
	require.NoError(t, err)
	wire[5] = 0x00
	assert.Equal(t, []byte{0x00, 0xAA, 0xBB}, got.Payload)
}

func TestDecode_SingleBitFlipIsBadChecksum(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x21, []byte{0x0C, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6, 0x07, 0x18, 0x29, 0x3A, 0x4B, 0x5C, 0xC8})
	require.NoError(t, err)

	// Every byte except the start and end markers.
	for i := 1; i < len(wire)-1; i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), wire...)
			corrupted[i] ^= 1 << bit

			_, consumed, err := Decode(corrupted)
			require.Error(t, err, "byte %d bit %d", i, bit)
			assert.True(t, IsFrameError(err, BadChecksum), "byte %d bit %d: got %v", i, bit, err)
			assert.Equal(t, 1, consumed)
		}
	}
}

func TestDecode_StrictPrefixNeedsMoreData(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x22, []byte{0x00, 0x00, 0x03, 0x01})
	require.NoError(t, err)

	for n := 0; n < len(wire); n++ {
		_, consumed, err := Decode(wire[:n])
		require.ErrorIs(t, err, ErrNeedMoreData, "prefix length %d", n)
		assert.Equal(t, 0, consumed, "prefix length %d", n)
	}
}

func TestDecode_BadEndMarker(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x11, []byte{0x00})
	require.NoError(t, err)
	wire[len(wire)-1] = 0x04

	_, consumed, err := Decode(wire)
	assert.True(t, IsFrameError(err, BadEndMarker))
	assert.Equal(t, 1, consumed)
}

func TestDecode_LengthOverflow(t *testing.T) {
	t.Parallel()

	small := Format{Start: StartByte, End: EndByte, MaxPayload: 4}
	wire, err := Encode(0x31, []byte{0x00, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	_, consumed, err := small.Decode(wire)
	assert.True(t, IsFrameError(err, LengthOverflow))
	assert.Equal(t, 1, consumed)
}

func TestDecode_SkipsLeadingGarbage(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x11, []byte{0x00, 0x41})
	require.NoError(t, err)

	garbage := []byte{0xFF, 0x00, 0x55}
	got, consumed, err := Decode(append(garbage, wire...))
	require.NoError(t, err)
	assert.Equal(t, len(garbage)+len(wire), consumed)
	assert.Equal(t, byte(0x11), got.Command)

	_, consumed, err = Decode(garbage)
	require.ErrorIs(t, err, ErrNeedMoreData)
	assert.Equal(t, len(garbage), consumed)
}

func TestDecode_ResynchronizesAfterFalseStart(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x33, []byte{0x00, 0x04})
	require.NoError(t, err)

	// A stray start marker followed by a bogus header, then the real frame.
	buf := append([]byte{StartByte, 0x05, 0x05, 0x99}, wire...)

	var frames []Frame
	var frameErrors int
	for len(buf) > 0 {
		f, consumed, err := Decode(buf)
		buf = buf[consumed:]
		switch {
		case err == nil:
			frames = append(frames, f)
		case errors.Is(err, ErrNeedMoreData):
			if consumed == 0 {
				buf = nil
			}
		default:
			frameErrors++
		}
	}

	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x33), frames[0].Command)
	assert.Equal(t, 1, frameErrors)
}

func TestNextFrame(t *testing.T) {
	t.Parallel()

	wire, err := Encode(0x11, []byte{0x00, 0x41, 0x42})
	require.NoError(t, err)

	// 02 F0 10 passes the length check and declares a 240-byte payload
	falseHeader := []byte{StartByte, 0xF0, 0x10}
	_, _, err = Decode(append(append([]byte{}, falseHeader...), wire...))
	require.ErrorIs(t, err, ErrNeedMoreData)

	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{name: "valid frame behind false header", buf: append(append([]byte{}, falseHeader...), wire...), want: 3},
		{name: "real frame still arriving", buf: append(append([]byte{}, falseHeader...), wire[:len(wire)-1]...), want: -1},
		{name: "only the false header", buf: falseHeader, want: -1},
		{name: "frame at offset zero is not next", buf: wire, want: -1},
		{name: "empty", buf: nil, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, DefaultFormat.NextFrame(tt.buf))
		})
	}
}

func TestFormat_PayloadLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MaxPayloadLength, DefaultFormat.PayloadLimit())
	assert.Equal(t, 32, Format{Start: StartByte, End: EndByte, MaxPayload: 32}.PayloadLimit())
	assert.Equal(t, MaxPayloadLength, Format{Start: StartByte, End: EndByte}.PayloadLimit())
}

func TestDecode_CoalescedFrames(t *testing.T) {
	t.Parallel()

	var stream []byte
	for _, epc := range [][]byte{{0xA1}, {0xB2}, {0xC3}} {
		wire, err := Encode(0x21, append([]byte{byte(len(epc))}, epc...))
		require.NoError(t, err)
		stream = append(stream, wire...)
	}

	var got [][]byte
	for len(stream) > 0 {
		f, consumed, err := Decode(stream)
		require.NoError(t, err)
		got = append(got, f.Payload[1:])
		stream = stream[consumed:]
	}
	assert.Equal(t, [][]byte{{0xA1}, {0xB2}, {0xC3}}, got)
}

func TestFrame_Status(t *testing.T) {
	t.Parallel()

	status, ok := Frame{Command: 0x33, Payload: []byte{0x0A, 0x00}}.Status()
	assert.True(t, ok)
	assert.Equal(t, byte(0x0A), status)

	_, ok = Frame{Command: 0x33}.Status()
	assert.False(t, ok)
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	buf := GetBuffer(32)
	assert.Len(t, buf, 32)
	PutBuffer(buf)

	large := GetBuffer(MaxFrameLength + 10)
	assert.Len(t, large, MaxFrameLength+10)
	PutBuffer(large)
}

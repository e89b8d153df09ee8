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

import "testing"

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x20},
			want: 0x20,
		},
		{
			name: "overflow wraps",
			data: []byte{0xFF, 0x01},
			want: 0x00,
		},
		{
			name: "inventory end payload",
			data: []byte{0x22, 0x00, 0x00, 0x03, 0x01},
			want: 0x26,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateChecksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		data        []byte
		wantInvalid bool
	}{
		{
			name:        "zero sum is valid",
			data:        []byte{0x20, 0xE0},
			wantInvalid: false,
		},
		{
			name:        "non-zero sum is invalid",
			data:        []byte{0x20, 0xE1},
			wantInvalid: true,
		},
		{
			name:        "command payload and DCS",
			data:        []byte{0x30, 0x03, 0x00, 0x00, 0x04, 0xC9},
			wantInvalid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateChecksum(tt.data); got != tt.wantInvalid {
				t.Errorf("ValidateChecksum() = %v, want %v", got, tt.wantInvalid)
			}
		})
	}
}

func TestCalculateDataChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload []byte
		cmd     byte
		want    byte
	}{
		{name: "inventory without payload", cmd: 0x20, payload: nil, want: 0xE0},
		{name: "inventory on antenna 1", cmd: 0x20, payload: []byte{0x01}, want: 0xDF},
		{name: "read user bank", cmd: 0x30, payload: []byte{0x03, 0x00, 0x00, 0x04}, want: 0xC9},
		{name: "inventory end", cmd: 0x22, payload: []byte{0x00, 0x00, 0x03, 0x01}, want: 0xDA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateDataChecksum(tt.cmd, tt.payload); got != tt.want {
				t.Errorf("CalculateDataChecksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestLengthChecksumProperty(t *testing.T) {
	t.Parallel()
	for i := 0; i < 256; i++ {
		length := byte(i)
		if sum := length + CalculateLengthChecksum(length); sum != 0 {
			t.Errorf("length=%d + LCS=%d = %d, expected 0", length, CalculateLengthChecksum(length), sum)
		}
	}
}

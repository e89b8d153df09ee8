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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUhfTag_String(t *testing.T) {
	t.Parallel()

	rssi := int8(-55)
	tag := &UhfTag{EPC: []byte{0xe2, 0x00, 0x1a}, RSSI: &rssi, TID: []byte{0xe2, 0x80}, Antenna: 2}
	assert.Equal(t, "E2001A", tag.ID())
	assert.Equal(t, "E280", tag.TIDString())
	assert.Equal(t, "EPC=E2001A RSSI=-55 TID=E280 ANT=2", tag.String())

	empty := &UhfTag{}
	assert.Equal(t, "unknown", empty.ID())
	assert.Equal(t, "EPC=unknown", empty.String())
	assert.False(t, empty.HasRSSI())
}

func TestParseMemoryBank(t *testing.T) {
	t.Parallel()

	tests := map[string]MemoryBank{
		"reserved": BankReserved, "RES": BankReserved,
		"epc": BankEPC, "TID": BankTID, "usr": BankUser, "User": BankUser,
	}
	for in, want := range tests {
		got, err := ParseMemoryBank(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseMemoryBank("flash")
	require.ErrorIs(t, err, ErrInvalidParameter)

	assert.Equal(t, "USR", BankUser.String())
	assert.Equal(t, "bank(7)", MemoryBank(7).String())
	assert.False(t, MemoryBank(4).Valid())
}

func TestTagSelector(t *testing.T) {
	t.Parallel()

	assert.True(t, TagSelector{}.IsEmpty())

	sel, err := SelectHex(" e2001a ")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE2, 0x00, 0x1A}, sel.EPC)
	assert.False(t, sel.IsEmpty())

	_, err = SelectHex("zz")
	require.ErrorIs(t, err, ErrInvalidParameter)

	epc := []byte{0x01, 0x02}
	copied := SelectEPC(epc)
	epc[0] = 0xFF
	assert.Equal(t, byte(0x01), copied.EPC[0])

	assert.True(t, Filter{}.IsEmpty())
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OK", StatusOK.String())
	assert.True(t, StatusOK.OK())
	assert.False(t, StatusNoTag.OK())
	assert.Equal(t, "status 0x42", Status(0x42).String())
}

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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

func TestLockUnlock(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualTag(testutil.TestEPC1, nil)
	reader, _, _ := newVirtualReader(t, tag)
	sel := SelectEPC(testutil.TestEPC1)

	require.NoError(t, reader.Lock(sel, BankUser, 0))
	assert.True(t, tag.Locked[testutil.BankUser])

	err := reader.Write(sel, BankUser, 0, []byte{0x01, 0x02})
	status, _ := StatusOf(err)
	assert.Equal(t, StatusMemoryLocked, status)

	require.NoError(t, reader.Unlock(sel, BankUser, 0))
	require.NoError(t, reader.Write(sel, BankUser, 0, []byte{0x01, 0x02}))
}

func TestLockPermanent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := testutil.NewVirtualTag(testutil.TestEPC1, nil)
	reader, _, _ := newVirtualReader(t, tag)

	require.NoError(t, reader.LockPermanentContext(ctx, TagSelector{}, BankUser, 0))
	err := reader.UnlockContext(ctx, TagSelector{}, BankUser, 0)
	require.ErrorIs(t, err, ErrDeviceError)
	status, _ := StatusOf(err)
	assert.Equal(t, StatusMemoryLocked, status)
}

func TestLock_WrongPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader, _, _ := newVirtualReader(t, testutil.NewVirtualTag(testutil.TestEPC1, nil))

	err := reader.LockContext(ctx, TagSelector{}, BankEPC, 0xDEADBEEF)
	status, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, StatusWrongPassword, status)

	require.ErrorIs(t, reader.LockContext(ctx, TagSelector{}, MemoryBank(5), 0), ErrEncoding)
}

func TestPasswordsAndKill(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := testutil.NewVirtualTag(testutil.TestEPC1, nil)
	reader, _, _ := newVirtualReader(t, tag)
	sel := SelectEPC(testutil.TestEPC1)

	require.NoError(t, reader.SetAccessPasswordContext(ctx, sel, 0, 0x11223344))
	assert.Equal(t, uint32(0x11223344), tag.AccessPassword())

	err := reader.SetKillPasswordContext(ctx, sel, 0, 0x55667788)
	status, _ := StatusOf(err)
	assert.Equal(t, StatusWrongPassword, status, "access password is now required")

	require.NoError(t, reader.SetKillPasswordContext(ctx, sel, 0x11223344, 0x55667788))
	assert.Equal(t, uint32(0x55667788), tag.KillPassword())

	require.ErrorIs(t, reader.KillContext(ctx, sel, 0), ErrEncoding)

	err = reader.KillContext(ctx, sel, 0x01020304)
	status, _ = StatusOf(err)
	assert.Equal(t, StatusWrongPassword, status)

	require.NoError(t, reader.KillContext(ctx, sel, 0x55667788))
	assert.True(t, tag.Killed)

	tags, err := reader.GetInventory()
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestLockPayload(t *testing.T) {
	t.Parallel()

	payload, err := lockPayload(lockActionPermanent, BankEPC, 0x01020304, SelectEPC([]byte{0xAA, 0xBB}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0x01, 0x02, 0x03, 0x04, 0x02, 0xAA, 0xBB}, payload)
}

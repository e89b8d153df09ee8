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
	"encoding/binary"
	"fmt"
)

// lockPayload encodes [action][bank][password u32][selLen][sel]
func lockPayload(action byte, bank MemoryBank, password uint32, sel TagSelector) ([]byte, error) {
	if err := validateBank(bank); err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 7+len(sel.EPC))
	payload = append(payload, action, byte(bank))
	payload = binary.BigEndian.AppendUint32(payload, password)
	return appendSelector(payload, sel)
}

func (r *Reader) lock(ctx context.Context, op string, action byte, sel TagSelector, bank MemoryBank, password uint32) error {
	payload, err := lockPayload(action, bank, password, sel)
	if err != nil {
		return newReaderError(KindEncoding, op, err)
	}
	return r.simple(ctx, op, cmdLock, payload)
}

// Lock write-protects bank on the selected tag until Unlock with password
func (r *Reader) Lock(sel TagSelector, bank MemoryBank, password uint32) error {
	return r.LockContext(context.Background(), sel, bank, password)
}

// LockContext is Lock with context support
func (r *Reader) LockContext(ctx context.Context, sel TagSelector, bank MemoryBank, password uint32) error {
	return r.lock(ctx, "Lock", lockActionLock, sel, bank, password)
}

// Unlock removes a non-permanent lock from bank
func (r *Reader) Unlock(sel TagSelector, bank MemoryBank, password uint32) error {
	return r.UnlockContext(context.Background(), sel, bank, password)
}

// UnlockContext is Unlock with context support
func (r *Reader) UnlockContext(ctx context.Context, sel TagSelector, bank MemoryBank, password uint32) error {
	return r.lock(ctx, "Unlock", lockActionUnlock, sel, bank, password)
}

// LockPermanent locks bank irreversibly. The tag can never be unlocked.
func (r *Reader) LockPermanent(sel TagSelector, bank MemoryBank, password uint32) error {
	return r.LockPermanentContext(context.Background(), sel, bank, password)
}

// LockPermanentContext is LockPermanent with context support
func (r *Reader) LockPermanentContext(ctx context.Context, sel TagSelector, bank MemoryBank, password uint32) error {
	return r.lock(ctx, "LockPermanent", lockActionPermanent, sel, bank, password)
}

// Kill permanently disables the selected tag. Gen2 tags ignore a zero kill password.
func (r *Reader) Kill(sel TagSelector, password uint32) error {
	return r.KillContext(context.Background(), sel, password)
}

// KillContext is Kill with context support
func (r *Reader) KillContext(ctx context.Context, sel TagSelector, password uint32) error {
	const op = "Kill"
	if password == 0 {
		return newReaderError(KindEncoding, op, fmt.Errorf("%w: kill password must be non-zero", ErrInvalidParameter))
	}
	payload := binary.BigEndian.AppendUint32(make([]byte, 0, 5+len(sel.EPC)), password)
	payload, err := appendSelector(payload, sel)
	if err != nil {
		return newReaderError(KindEncoding, op, err)
	}
	return r.simple(ctx, op, cmdKill, payload)
}

func (r *Reader) setPassword(ctx context.Context, op string, which byte, sel TagSelector, current, next uint32) error {
	payload := make([]byte, 0, 10+len(sel.EPC))
	payload = append(payload, which)
	payload = binary.BigEndian.AppendUint32(payload, current)
	payload = binary.BigEndian.AppendUint32(payload, next)
	payload, err := appendSelector(payload, sel)
	if err != nil {
		return newReaderError(KindEncoding, op, err)
	}
	return r.simple(ctx, op, cmdSetPassword, payload)
}

// SetAccessPassword changes the access password of the selected tag
func (r *Reader) SetAccessPassword(sel TagSelector, current, next uint32) error {
	return r.SetAccessPasswordContext(context.Background(), sel, current, next)
}

// SetAccessPasswordContext is SetAccessPassword with context support
func (r *Reader) SetAccessPasswordContext(ctx context.Context, sel TagSelector, current, next uint32) error {
	return r.setPassword(ctx, "SetAccessPassword", passwordAccess, sel, current, next)
}

// SetKillPassword changes the kill password of the selected tag
func (r *Reader) SetKillPassword(sel TagSelector, access, next uint32) error {
	return r.SetKillPasswordContext(context.Background(), sel, access, next)
}

// SetKillPasswordContext is SetKillPassword with context support
func (r *Reader) SetKillPasswordContext(ctx context.Context, sel TagSelector, access, next uint32) error {
	return r.setPassword(ctx, "SetKillPassword", passwordKill, sel, access, next)
}

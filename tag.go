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
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// MemoryBank selects a Gen2 tag memory region
type MemoryBank byte

// Gen2 memory banks
const (
	BankReserved MemoryBank = 0x00
	BankEPC      MemoryBank = 0x01
	BankTID      MemoryBank = 0x02
	BankUser     MemoryBank = 0x03
)

func (b MemoryBank) String() string {
	switch b {
	case BankReserved:
		return "RES"
	case BankEPC:
		return "EPC"
	case BankTID:
		return "TID"
	case BankUser:
		return "USR"
	default:
		return fmt.Sprintf("bank(%d)", byte(b))
	}
}

// Valid reports whether b names one of the four Gen2 banks
func (b MemoryBank) Valid() bool {
	return b <= BankUser
}

// ParseMemoryBank parses a bank name such as "EPC", "usr" or "user"
func ParseMemoryBank(s string) (MemoryBank, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RES", "RESERVED":
		return BankReserved, nil
	case "EPC":
		return BankEPC, nil
	case "TID":
		return BankTID, nil
	case "USR", "USER":
		return BankUser, nil
	default:
		return 0, fmt.Errorf("%w: unknown memory bank %q", ErrInvalidParameter, s)
	}
}

// UhfTag is one tag observation decoded from a reader response
type UhfTag struct {
	Timestamp time.Time
	RSSI      *int8
	EPC       []byte
	TID       []byte
	Data      []byte
	Antenna   int
}

// ID returns the EPC as upper-case hex, or "unknown" if the EPC is empty
func (t *UhfTag) ID() string {
	if len(t.EPC) == 0 {
		return "unknown"
	}
	return strings.ToUpper(hex.EncodeToString(t.EPC))
}

// HasRSSI reports whether the reader supplied a signal strength
func (t *UhfTag) HasRSSI() bool {
	return t.RSSI != nil
}

// TIDString returns the TID as upper-case hex, empty if none was reported
func (t *UhfTag) TIDString() string {
	return strings.ToUpper(hex.EncodeToString(t.TID))
}

func (t *UhfTag) String() string {
	var b strings.Builder
	b.WriteString("EPC=")
	b.WriteString(t.ID())
	if t.RSSI != nil {
		fmt.Fprintf(&b, " RSSI=%d", *t.RSSI)
	}
	if len(t.TID) > 0 {
		b.WriteString(" TID=")
		b.WriteString(t.TIDString())
	}
	if t.Antenna > 0 {
		fmt.Fprintf(&b, " ANT=%d", t.Antenna)
	}
	return b.String()
}

// TagSelector addresses one tag for read, write and security commands.
// An empty EPC acts on whichever single tag answers.
type TagSelector struct {
	EPC []byte
}

// SelectEPC returns a selector for the tag with the given EPC
func SelectEPC(epc []byte) TagSelector {
	return TagSelector{EPC: append([]byte(nil), epc...)}
}

// SelectHex parses an EPC in hex and returns a selector for it
func SelectHex(epc string) (TagSelector, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(epc))
	if err != nil {
		return TagSelector{}, fmt.Errorf("%w: EPC %q is not hex: %w", ErrInvalidParameter, epc, err)
	}
	return TagSelector{EPC: raw}, nil
}

// IsEmpty reports whether the selector matches any tag
func (s TagSelector) IsEmpty() bool {
	return len(s.EPC) == 0
}

// Filter restricts an inventory round to tags whose bank content at Start
// begins with Mask. Start is a byte offset into the bank.
type Filter struct {
	Mask  []byte
	Bank  MemoryBank
	Start uint8
}

// IsEmpty reports whether the filter matches every tag
func (f Filter) IsEmpty() bool {
	return len(f.Mask) == 0
}

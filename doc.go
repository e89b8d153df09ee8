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

/*
Package uhf provides a pure Go library for UHF RFID readers that speak a
framed binary protocol over a serial line.

A Reader owns one byte transport and runs one command at a time: it frames
the request, writes it, and reads until a matching response arrives or the
deadline passes, skipping garbage and corrupt frames on the way. Inventory
rounds collect any number of tag frames until the reader sends its terminal
frame.

Features:
  - Frame codec with checksummed length and body, and resynchronization
  - Inventory with optional RSSI, TID, antenna and select mask
  - Tag memory read and write, EPC rewrite with PC word update
  - Lock, unlock, permanent lock, kill and password changes
  - Reader settings: power, region, anticollision Q, inventory flags
  - Bounded retries on timeout and line corruption
  - Port auto-detection with a USB blocklist
  - Continuous inventory and coordinated writes in the polling package

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-uhf"
	    "github.com/ZaparooProject/go-uhf/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	reader, err := uhf.New(transport,
	    uhf.WithTimeout(500*time.Millisecond),
	    uhf.WithMaxRetries(2),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer reader.Close()

	if err := reader.Init(); err != nil {
	    log.Fatal(err)
	}

	tags, err := reader.GetInventory()
	if err != nil {
	    log.Fatal(err)
	}
	for _, tag := range tags {
	    fmt.Println(tag.String())
	}

	// Read two words of user memory from the first tag
	data, err := reader.Read(uhf.SelectEPC(tags[0].EPC), uhf.BankUser, 0, 2)

Error Handling:

Every Reader operation fails with a *ReaderError whose Kind says what went
wrong. Each kind also matches a sentinel:

	switch {
	case errors.Is(err, uhf.ErrTimeout):
	    // no response before the deadline
	case errors.Is(err, uhf.ErrDeviceError):
	    status, _ := uhf.StatusOf(err)
	    // the reader answered with a failure status
	}

Inventory is best effort: when a tag frame is malformed or the tag count
disagrees with the terminal frame, the tags decoded so far are returned
together with an ErrMalformedPayload error.

Thread Safety:

A Reader may be shared between goroutines. Commands are serialized; a second
caller waits until the command in flight resolves.
*/
package uhf

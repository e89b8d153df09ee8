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

import "time"

// Observer receives protocol events from a Reader. Methods are called with
// the reader's exchange lock held and must not call back into the Reader.
type Observer interface {
	FrameSent(cmd byte, size int)
	FrameReceived(cmd byte, size int)
	FrameError(kind string)
	Retry(op string)
	// Timeout is called whenever an attempt's deadline expires, including
	// attempts that only saw corrupt frames and fail with KindFrame.
	Timeout(op string)
	DeviceError(op string, status Status)
	Exchange(op string, elapsed time.Duration, err error)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) FrameSent(byte, int) {}
func (NopObserver) FrameReceived(byte, int) {}
func (NopObserver) FrameError(string) {}
func (NopObserver) Retry(string) {}
func (NopObserver) Timeout(string) {}
func (NopObserver) DeviceError(string, Status) {}
func (NopObserver) Exchange(string, time.Duration, error) {}

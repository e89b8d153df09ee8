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

import "sync"

// readBufferPool holds scratch buffers sized for one maximal frame
var readBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxFrameLength)
		return &buf
	},
}

// GetBuffer returns a pooled buffer of at least size bytes
func GetBuffer(size int) []byte {
	if size > MaxFrameLength {
		return make([]byte, size)
	}
	bufPtr, ok := readBufferPool.Get().(*[]byte)
	if !ok {
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// PutBuffer returns a buffer obtained from GetBuffer to the pool
func PutBuffer(buf []byte) {
	if cap(buf) != MaxFrameLength {
		return
	}
	buf = buf[:cap(buf)]
	readBufferPool.Put(&buf)
}

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

package polling

import uhf "github.com/ZaparooProject/go-uhf"

// setupEventHandlers routes monitor events through pending writes and then
// to the scanner callbacks
func (s *Scanner) setupEventHandlers() {
	s.monitor.OnTagArrived = func(tag uhf.UhfTag) error {
		s.processPendingWrites(tag)

		if s.OnTagArrived != nil {
			return s.OnTagArrived(tag)
		}
		return nil
	}

	s.monitor.OnTagDeparted = func(state TagState) {
		if s.OnTagDeparted != nil {
			s.OnTagDeparted(state)
		}
	}

	s.monitor.OnError = func(err error) {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}

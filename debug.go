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
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetDebugEnabled switches protocol debug logging on or off.
// Enabling installs a development logger writing to stderr.
func SetDebugEnabled(enabled bool) {
	if !enabled {
		logger.Store(zap.NewNop())
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	logger.Store(l.Named("uhf"))
}

// SetLogger installs l as the package logger; nil restores the no-op logger
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Logger returns the current package logger
func Logger() *zap.Logger {
	return logger.Load()
}

func debugf(format string, args ...any) {
	l := logger.Load()
	if l.Core().Enabled(zap.DebugLevel) {
		l.Debug(fmt.Sprintf(format, args...))
	}
}

func debugln(args ...any) {
	l := logger.Load()
	if l.Core().Enabled(zap.DebugLevel) {
		l.Debug(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	}
}

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

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Scanner runs a Monitor in the background and coordinates writes with
// tags as they arrive in the field.
type Scanner struct {
	reader        *uhf.Reader
	config        *Config
	monitor       *Monitor
	pendingWrite  atomic.Pointer[WriteRequest]
	cancelFunc    context.CancelFunc
	done          chan struct{}
	OnTagArrived  func(tag uhf.UhfTag) error
	OnTagDeparted func(state TagState)
	OnError       func(err error)
	writeMutex    sync.Mutex
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// WriteFunc performs a write against one tag
type WriteFunc func(ctx context.Context, reader *uhf.Reader, tag uhf.UhfTag) error

// WriteRequest is a write waiting for the next tag
type WriteRequest struct {
	ctx       context.Context
	createdAt time.Time
	operation WriteFunc
	result    chan error
}

// Scanner errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
	ErrScannerRunning      = errors.New("scanner is already running")
	ErrNoTagPresent        = errors.New("no tag in field")
	ErrMultipleTagsPresent = errors.New("more than one tag in field")
)

// NewScanner creates a scanner for reader; a nil config uses DefaultConfig
func NewScanner(reader *uhf.Reader, config *Config) (*Scanner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	monitor, err := NewMonitor(reader, config)
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		reader:  reader,
		config:  config,
		monitor: monitor,
	}
	s.setupEventHandlers()
	return s, nil
}

// Start begins scanning in the background
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	go func() {
		defer close(done)
		defer s.running.Store(false)

		err := s.monitor.Start(scanCtx)
		if err != nil && !errors.Is(err, context.Canceled) && s.OnError != nil {
			s.OnError(err)
		}
	}()

	return nil
}

// Stop cancels scanning and waits for the polling goroutine to exit
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc, done := s.cancelFunc, s.done
	s.cancelFunc, s.done = nil, nil
	s.stopMutex.Unlock()

	if cancelFunc == nil {
		return nil
	}
	cancelFunc()
	<-done
	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}

// Monitor returns the underlying monitor
func (s *Scanner) Monitor() *Monitor {
	return s.monitor
}

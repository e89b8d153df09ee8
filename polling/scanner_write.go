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
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// WriteToNextTag waits for the next tag to arrive in the field and runs
// operation against it. It blocks until the operation completes, the
// timeout elapses or ctx is canceled.
func (s *Scanner) WriteToNextTag(ctx context.Context, timeout time.Duration, operation WriteFunc) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	if !s.writeMutex.TryLock() {
		return ErrWriteAlreadyPending
	}
	defer s.writeMutex.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	req := &WriteRequest{
		operation: operation,
		result:    result,
		ctx:       writeCtx,
		createdAt: time.Now(),
	}

	s.pendingWrite.Store(req)
	defer s.pendingWrite.CompareAndSwap(req, nil)

	select {
	case err := <-result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// WriteToCurrentTag runs operation against the single tag in the field.
// It fails when the field is empty or holds more than one tag.
func (s *Scanner) WriteToCurrentTag(ctx context.Context, operation WriteFunc) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	present := s.monitor.Snapshot()
	switch len(present) {
	case 0:
		return ErrNoTagPresent
	case 1:
		return s.monitor.WriteToTag(ctx, present[0].Tag, operation)
	default:
		return ErrMultipleTagsPresent
	}
}

// processPendingWrites runs a queued write against a newly arrived tag.
// It is called from the polling goroutine.
func (s *Scanner) processPendingWrites(tag uhf.UhfTag) {
	req := s.pendingWrite.Swap(nil)
	if req == nil {
		return
	}

	if err := req.ctx.Err(); err != nil {
		sendWriteResult(req, err)
		return
	}

	sendWriteResult(req, s.monitor.WriteToTag(req.ctx, tag, req.operation))
}

func sendWriteResult(req *WriteRequest, err error) {
	select {
	case req.result <- err:
	default:
	}
}

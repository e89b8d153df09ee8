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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// State is the protocol engine state
type State int32

// Engine states. Terminal states return to StateIdle once the call resolves.
const (
	StateIdle State = iota
	StateAwaitingResponse
	StateCompleted
	StateTimedOut
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateCompleted:
		return "Completed"
	case StateTimedOut:
		return "TimedOut"
	case StateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const (
	// DefaultTimeout bounds each attempt of a command exchange
	DefaultTimeout = 500 * time.Millisecond

	// readSlice caps a single transport read so cancellation is noticed
	readSlice = 50 * time.Millisecond

	maxDrainReads = 16
)

// command is one request issued by the facade. handle is fed every response
// frame whose code is in expects; it reports completion or a terminal error.
// reset clears per-attempt state before a retry.
type command struct {
	handle  func(f frame.Frame) (done bool, err error)
	reset   func()
	op      string
	payload []byte
	expects []byte
	code    byte
}

func (c *command) accepts(code byte) bool {
	for _, e := range c.expects {
		if e == code {
			return true
		}
	}
	return false
}

// engine owns the transport and runs one exchange at a time
type engine struct {
	transport Transport
	observer  Observer
	retry     *RetryConfig
	buf       []byte
	format    frame.Format
	timeout   time.Duration
	mu        sync.Mutex
	state     atomic.Int32
	last      atomic.Int32
	closed    bool
}

func newEngine(t Transport) *engine {
	return &engine{
		transport: t,
		observer:  NopObserver{},
		retry:     DefaultRetryConfig(),
		format:    frame.DefaultFormat,
		timeout:   DefaultTimeout,
		buf:       make([]byte, 0, frame.MaxFrameLength),
	}
}

func (e *engine) setState(s State) {
	e.state.Store(int32(s))
	if s != StateIdle && s != StateAwaitingResponse {
		e.last.Store(int32(s))
	}
}

// exchange sends cmd and feeds responses to its handler until it completes,
// fails, or every attempt times out.
func (e *engine) exchange(ctx context.Context, cmd *command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return newReaderError(KindClosed, cmd.op, nil)
	}

	wire, err := e.format.Encode(cmd.code, cmd.payload)
	if err != nil {
		return newReaderError(KindEncoding, cmd.op, err)
	}

	if err := ctx.Err(); err != nil {
		return newReaderError(KindCanceled, cmd.op, err)
	}

	started := time.Now()
	attempt := 0
	err = RetryWithConfig(ctx, e.retry, func() error {
		attempt++
		if attempt > 1 {
			e.observer.Retry(cmd.op)
			if cmd.reset != nil {
				cmd.reset()
			}
		}
		return e.attempt(ctx, cmd, wire)
	})
	e.setState(StateIdle)
	e.observer.Exchange(cmd.op, time.Since(started), err)
	return err
}

func (e *engine) attempt(ctx context.Context, cmd *command, wire []byte) error {
	e.discardInput()
	e.setState(StateAwaitingResponse)

	n, err := e.transport.Write(wire)
	if err != nil {
		e.setState(StateErrored)
		return newReaderError(KindTransport, cmd.op, err)
	}
	if n != len(wire) {
		e.setState(StateErrored)
		return newReaderError(KindTransport, cmd.op,
			NewTransportError("write", "", fmt.Errorf("%w: wrote %d of %d bytes", ErrTransportWrite, n, len(wire)),
				ErrorTypeTransient))
	}
	e.observer.FrameSent(cmd.code, len(cmd.payload))
	debugf("%s: sent % X", cmd.op, wire)

	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var lastFrameErr error
	for {
		if err := ctx.Err(); err != nil {
			e.setState(StateErrored)
			return newReaderError(KindCanceled, cmd.op, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := remaining
		if ctx.Done() != nil && wait > readSlice {
			wait = readSlice
		}

		data, err := e.transport.Read(frame.MaxFrameLength, wait)
		if err != nil {
			e.setState(StateErrored)
			return newReaderError(KindTransport, cmd.op, err)
		}
		if len(data) == 0 {
			continue
		}
		e.buf = append(e.buf, data...)

		done, ferr, err := e.dispatch(cmd)
		if ferr != nil {
			lastFrameErr = ferr
		}
		if err != nil {
			e.setState(StateErrored)
			return e.annotate(cmd.op, err)
		}
		if done {
			e.setState(StateCompleted)
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		e.setState(StateErrored)
		return newReaderError(KindCanceled, cmd.op, err)
	}

	e.setState(StateTimedOut)
	e.observer.Timeout(cmd.op)
	if lastFrameErr != nil {
		debugf("%s: no valid response, last frame error: %v", cmd.op, lastFrameErr)
		return newReaderError(KindFrame, cmd.op, lastFrameErr)
	}
	debugf("%s: timed out after %v", cmd.op, e.timeout)
	return newReaderError(KindTimeout, cmd.op, fmt.Errorf("no response within %v", e.timeout))
}

// dispatch decodes every complete frame in the accumulation buffer in order.
// It returns the last frame error seen and any terminal error from the handler.
func (e *engine) dispatch(cmd *command) (done bool, frameErr, err error) {
	for len(e.buf) > 0 {
		f, consumed, derr := e.format.Decode(e.buf)
		e.consume(consumed)

		if errors.Is(derr, frame.ErrNeedMoreData) {
			skip := e.format.NextFrame(e.buf)
			if skip < 0 {
				return false, frameErr, nil
			}
			frameErr = &frame.Error{Kind: frame.FalseStart}
			e.observer.FrameError(frame.FalseStart.String())
			debugf("%s: dropping false start, frame found %d bytes ahead", cmd.op, skip)
			e.consume(skip)
			continue
		}
		if derr != nil {
			frameErr = derr
			var fe *frame.Error
			if errors.As(derr, &fe) {
				e.observer.FrameError(fe.Kind.String())
			}
			debugf("%s: resynchronizing: %v", cmd.op, derr)
			continue
		}

		e.observer.FrameReceived(f.Command, len(f.Payload))

		if f.Command == respError {
			if err := e.errorFrame(cmd, f); err != nil {
				return false, frameErr, err
			}
			continue
		}

		if !cmd.accepts(f.Command) {
			debugf("%s: dropping unexpected frame 0x%02X", cmd.op, f.Command)
			continue
		}

		done, err := cmd.handle(f)
		if err != nil {
			return done, frameErr, err
		}
		if done {
			return true, frameErr, nil
		}
	}
	return false, frameErr, nil
}

// errorFrame handles the generic error response. Error frames for other
// commands are stale and dropped.
func (e *engine) errorFrame(cmd *command, f frame.Frame) error {
	if len(f.Payload) < 2 {
		return newReaderError(KindMalformedPayload, cmd.op,
			fmt.Errorf("error frame too short: %d bytes", len(f.Payload)))
	}
	if f.Payload[0] != cmd.code {
		debugf("%s: dropping error frame for command 0x%02X", cmd.op, f.Payload[0])
		return nil
	}
	return newDeviceError(cmd.op, Status(f.Payload[1]))
}

// annotate fills in the operation name and notifies the observer of device errors
func (e *engine) annotate(op string, err error) error {
	var re *ReaderError
	if !errors.As(err, &re) {
		return newReaderError(KindMalformedPayload, op, err)
	}
	if re.Op == "" {
		re.Op = op
	}
	if re.Kind == KindDevice {
		e.observer.DeviceError(re.Op, re.Status)
	}
	return err
}

func (e *engine) consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(e.buf) {
		e.buf = e.buf[:0]
		return
	}
	e.buf = append(e.buf[:0], e.buf[n:]...)
}

// discardInput drops bytes left over from a previous exchange
func (e *engine) discardInput() {
	e.buf = e.buf[:0]

	if flusher, ok := e.transport.(InputFlusher); ok && hasCapability(e.transport, CapabilityInputFlush) {
		if err := flusher.ResetInput(); err == nil {
			return
		}
	}

	for range maxDrainReads {
		stale, err := e.transport.Read(frame.MaxFrameLength, 0)
		if err != nil || len(stale) == 0 {
			return
		}
		debugf("discarded %d stale bytes", len(stale))
	}
}

func (e *engine) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.buf = nil
	if err := e.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

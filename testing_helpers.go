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
	"errors"
	"sync"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// ResponseFunc returns the wire bytes a simulated reader sends in reply to
// the request cmd with payload
type ResponseFunc func(cmd byte, payload []byte) []byte

// MockTransport is a scripted in-memory Transport. Each request written to it
// is decoded and the bytes configured for its command become readable.
type MockTransport struct {
	responses  map[byte][]byte
	queued     map[byte][][]byte
	writeErrs  map[byte]error
	calls      map[byte]int
	notify     chan struct{}
	respFunc   ResponseFunc
	readErr    error
	pending    []byte
	written    [][]byte
	readyAt    time.Time
	delay      time.Duration
	chunkSize  int
	shortWrite int
	mu         sync.Mutex
	closed     bool
}

// NewMockTransport creates a connected mock with no scripted responses
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		queued:    make(map[byte][][]byte),
		writeErrs: make(map[byte]error),
		calls:     make(map[byte]int),
		notify:    make(chan struct{}, 1),
	}
}

// SetResponse makes every request for cmd answer with wire
func (m *MockTransport) SetResponse(cmd byte, wire []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = append([]byte(nil), wire...)
}

// QueueResponse answers the next request for cmd with wire. Queued responses
// are used in order before any response set with SetResponse.
func (m *MockTransport) QueueResponse(cmd byte, wire ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wire {
		m.queued[cmd] = append(m.queued[cmd], append([]byte(nil), w...))
	}
}

// SetResponseFunc answers requests with fn when no scripted response exists
func (m *MockTransport) SetResponseFunc(fn ResponseFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respFunc = fn
}

// SetError makes writes of requests for cmd fail with err
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[cmd] = err
}

// SetReadError makes every Read fail with err
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetDelay holds responses back for d after each request
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetChunkSize limits how many bytes a single Read returns
func (m *MockTransport) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
}

// SetShortWrite makes Write report only n bytes written
func (m *MockTransport) SetShortWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortWrite = n
}

// Inject appends raw bytes to the receive stream
func (m *MockTransport) Inject(data []byte) {
	m.mu.Lock()
	m.pending = append(m.pending, data...)
	m.mu.Unlock()
	m.signal()
}

// GetCallCount returns how many requests for cmd were written
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

// Written returns copies of every successful Write, in order
func (m *MockTransport) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	for i, w := range m.written {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// BytesWritten returns the total number of bytes written
func (m *MockTransport) BytesWritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, w := range m.written {
		total += len(w)
	}
	return total
}

func (m *MockTransport) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Write records data and queues the response for the request it carries
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewTransportClosedError("write", "mock")
	}

	req, _, err := frame.Decode(data)
	if err == nil {
		if werr := m.writeErrs[req.Command]; werr != nil {
			return 0, werr
		}
		m.calls[req.Command]++
	}

	n := len(data)
	if m.shortWrite > 0 && m.shortWrite < n {
		n = m.shortWrite
	}
	m.written = append(m.written, append([]byte(nil), data[:n]...))
	if err != nil || n != len(data) {
		return n, nil
	}

	var resp []byte
	switch {
	case len(m.queued[req.Command]) > 0:
		resp = m.queued[req.Command][0]
		m.queued[req.Command] = m.queued[req.Command][1:]
	case m.responses[req.Command] != nil:
		resp = m.responses[req.Command]
	case m.respFunc != nil:
		resp = m.respFunc(req.Command, req.Payload)
	}
	if len(resp) > 0 {
		m.pending = append(m.pending, resp...)
		m.readyAt = time.Now().Add(m.delay)
		m.signal()
	}
	return n, nil
}

// Read returns pending bytes, waiting up to timeout for some to arrive
func (m *MockTransport) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, NewTransportClosedError("read", "mock")
		}
		if m.readErr != nil {
			err := m.readErr
			m.mu.Unlock()
			return nil, err
		}
		now := time.Now()
		if len(m.pending) > 0 && !now.Before(m.readyAt) {
			n := min(maxBytes, len(m.pending))
			if m.chunkSize > 0 {
				n = min(n, m.chunkSize)
			}
			out := append([]byte(nil), m.pending[:n]...)
			m.pending = m.pending[n:]
			m.mu.Unlock()
			return out, nil
		}
		wait := deadline.Sub(now)
		if len(m.pending) > 0 && m.readyAt.Sub(now) < wait {
			wait = m.readyAt.Sub(now)
		}
		m.mu.Unlock()

		if wait <= 0 {
			return []byte{}, nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-m.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close is called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

var errBlockingClosed = errors.New("blocking mock closed")

// BlockingMockTransport accepts writes but holds every read until Unblock,
// Close, or the read timeout. It is used to test cancellation and
// serialization of concurrent callers.
type BlockingMockTransport struct {
	blockChan chan struct{}
	Response  []byte
	writes    int
	mu        sync.Mutex
	closed    bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{blockChan: make(chan struct{})}
}

// NewBlockingMockTransportWithResponse creates a blocking mock that returns
// response once unblocked
func NewBlockingMockTransportWithResponse(response []byte) *BlockingMockTransport {
	mock := NewBlockingMockTransport()
	mock.Response = response
	return mock
}

// Write records the request
func (m *BlockingMockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewTransportClosedError("write", "mock")
	}
	m.writes++
	return len(data), nil
}

// Writes returns how many requests were written
func (m *BlockingMockTransport) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Read blocks until Unblock, Close, or timeout. A zero timeout never blocks.
func (m *BlockingMockTransport) Read(_ int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	blockChan := m.blockChan
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, NewTransportError("read", "mock", errBlockingClosed, ErrorTypePermanent)
	}
	if timeout <= 0 {
		return []byte{}, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-blockChan:
	case <-timer.C:
		return []byte{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, NewTransportError("read", "mock", errBlockingClosed, ErrorTypePermanent)
	}
	out := m.Response
	m.Response = nil
	return out, nil
}

// Unblock releases every blocked Read
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// IsConnected returns true until Close is called
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}

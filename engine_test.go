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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

// recordingObserver counts protocol events
type recordingObserver struct {
	deviceErrors map[string]Status
	frameErrors  []string
	exchanges    []string
	mu           sync.Mutex
	sent         int
	received     int
	retries      int
	timeouts     int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{deviceErrors: make(map[string]Status)}
}

func (o *recordingObserver) FrameSent(byte, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent++
}

func (o *recordingObserver) FrameReceived(byte, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received++
}

func (o *recordingObserver) FrameError(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frameErrors = append(o.frameErrors, kind)
}

func (o *recordingObserver) Retry(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func (o *recordingObserver) Timeout(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeouts++
}

func (o *recordingObserver) DeviceError(op string, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deviceErrors[op] = status
}

func (o *recordingObserver) Exchange(op string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exchanges = append(o.exchanges, op)
}

// newTestReader creates a reader with a short timeout and no retries
func newTestReader(t *testing.T, mock Transport, opts ...Option) *Reader {
	t.Helper()
	base := []Option{WithTimeout(100 * time.Millisecond), WithMaxRetries(0), WithRetryBackoff(time.Millisecond)}
	reader, err := New(mock, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}

func TestEngine_TimeoutIsDeterministic(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	observer := newRecordingObserver()
	reader := newTestReader(t, mock, WithObserver(observer))

	start := time.Now()
	_, err := reader.GetReaderInfo()
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)

	assert.Equal(t, StateIdle, reader.State())
	assert.Equal(t, StateTimedOut, reader.LastOutcome())
	assert.Equal(t, 1, observer.timeouts)
	assert.Equal(t, 1, mock.GetCallCount(testutil.CmdGetReaderInfo))
}

func TestEngine_RetriesAfterTimeout(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.QueueResponse(testutil.CmdGetReaderInfo, []byte{}, testutil.BuildReaderInfoResponse())
	observer := newRecordingObserver()
	reader := newTestReader(t, mock, WithMaxRetries(1), WithObserver(observer))

	info, err := reader.GetReaderInfo()
	require.NoError(t, err)
	assert.Equal(t, "UHF-M100", info.Hardware)
	assert.Equal(t, 2, mock.GetCallCount(testutil.CmdGetReaderInfo))
	assert.Equal(t, 1, observer.retries)
	assert.Equal(t, StateCompleted, reader.LastOutcome())
}

func TestEngine_CoalescedAndFragmentedResponses(t *testing.T) {
	t.Parallel()

	epcs := [][]byte{{0xA1}, {0xB2}, {0xC3}}
	for _, chunk := range []int{0, 1, 5} {
		mock := NewMockTransport()
		mock.SetResponse(testutil.CmdInventory, testutil.BuildInventory(epcs...))
		mock.SetChunkSize(chunk)
		reader := newTestReader(t, mock)

		tags, err := reader.GetInventory()
		require.NoError(t, err, "chunk size %d", chunk)
		require.Len(t, tags, 3)
		for i, epc := range epcs {
			assert.Equal(t, epc, tags[i].EPC, "chunk size %d tag %d", chunk, i)
		}
	}
}

func TestEngine_ResynchronizesAfterGarbage(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	observer := newRecordingObserver()
	garbage := []byte{0xFF, 0x02, 0x05, 0x00, 0x13}
	mock.SetResponse(testutil.CmdGetReaderInfo, append(garbage, testutil.BuildReaderInfoResponse()...))
	reader := newTestReader(t, mock, WithObserver(observer))

	info, err := reader.GetReaderInfo()
	require.NoError(t, err)
	assert.Equal(t, "SN0001", info.SerialNumber)
	assert.Contains(t, observer.frameErrors, "bad checksum")
}

func TestEngine_OnlyCorruptFramesIsFrameError(t *testing.T) {
	t.Parallel()

	corrupt := testutil.BuildReaderInfoResponse()
	corrupt[len(corrupt)-2] ^= 0xFF

	mock := NewMockTransport()
	observer := newRecordingObserver()
	mock.SetResponse(testutil.CmdGetReaderInfo, corrupt)
	reader := newTestReader(t, mock, WithObserver(observer))

	_, err := reader.GetReaderInfo()
	require.ErrorIs(t, err, ErrFrame)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 1, observer.timeouts)
}

func TestEngine_FalseHeaderInGarbage(t *testing.T) {
	t.Parallel()

	// 02 F0 10 declares a 240-byte frame that never arrives
	garbage := []byte{0x02, 0xF0, 0x10}

	tests := []struct {
		name    string
		chunked bool
	}{
		{name: "single read"},
		{name: "response split across reads", chunked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := NewMockTransport()
			observer := newRecordingObserver()
			response := append(append([]byte{}, garbage...), testutil.BuildReaderInfoResponse()...)
			mock.SetResponse(testutil.CmdGetReaderInfo, response)
			if tt.chunked {
				mock.SetChunkSize(4)
			}
			reader := newTestReader(t, mock, WithObserver(observer), WithMaxRetries(1))

			info, err := reader.GetReaderInfo()
			require.NoError(t, err)
			assert.Equal(t, "SN0001", info.SerialNumber)
			assert.Equal(t, 1, mock.GetCallCount(testutil.CmdGetReaderInfo))
			assert.Contains(t, observer.frameErrors, "false start")
			assert.Zero(t, observer.timeouts)
		})
	}
}

func TestEngine_ErrorFrames(t *testing.T) {
	t.Parallel()

	t.Run("stale error frame for another command is dropped", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		stale := testutil.BuildErrorFrame(testutil.CmdReadMemory, testutil.StatusNoTag)
		mock.SetResponse(testutil.CmdGetReaderInfo, append(stale, testutil.BuildReaderInfoResponse()...))
		reader := newTestReader(t, mock)

		_, err := reader.GetReaderInfo()
		require.NoError(t, err)
	})

	t.Run("error frame for the pending command is a device error", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetResponse(testutil.CmdWriteMemory,
			testutil.BuildErrorFrame(testutil.CmdWriteMemory, testutil.StatusMemoryLocked))
		observer := newRecordingObserver()
		reader := newTestReader(t, mock, WithObserver(observer))

		err := reader.Write(TagSelector{}, BankUser, 0, []byte{0x12, 0x34})
		require.ErrorIs(t, err, ErrDeviceError)
		status, ok := StatusOf(err)
		require.True(t, ok)
		assert.Equal(t, StatusMemoryLocked, status)
		assert.Equal(t, StatusMemoryLocked, observer.deviceErrors["WriteMemory"])
		assert.Equal(t, StateErrored, reader.LastOutcome())
	})

	t.Run("truncated error frame is malformed", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetResponse(testutil.CmdGetReaderInfo, testutil.Build(testutil.RespError, []byte{testutil.CmdGetReaderInfo}))
		reader := newTestReader(t, mock)

		_, err := reader.GetReaderInfo()
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestEngine_UnexpectedFramesAreDropped(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	unrelated := testutil.BuildSettingsResponse(testutil.Settings{Power: 3})
	mock.SetResponse(testutil.CmdGetReaderInfo, append(unrelated, testutil.BuildReaderInfoResponse()...))
	reader := newTestReader(t, mock)

	_, err := reader.GetReaderInfo()
	require.NoError(t, err)
}

func TestEngine_StaleInputIsDiscarded(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.Inject(testutil.BuildErrorFrame(testutil.CmdGetReaderInfo, testutil.StatusNoTag))
	mock.SetResponse(testutil.CmdGetReaderInfo, testutil.BuildReaderInfoResponse())
	reader := newTestReader(t, mock)

	_, err := reader.GetReaderInfo()
	require.NoError(t, err)
}

func TestEngine_EncodingErrorWritesNothing(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	reader := newTestReader(t, mock, WithFrameFormat(0x02, 0x03, 16))

	err := reader.Write(TagSelector{}, BankUser, 0, make([]byte, 16))
	require.ErrorIs(t, err, ErrEncoding)
	assert.Equal(t, 0, mock.BytesWritten())

	err = reader.Write(TagSelector{}, BankUser, 0, make([]byte, MaxWriteBytes+2))
	require.ErrorIs(t, err, ErrEncoding)
	require.ErrorIs(t, err, ErrDataTooLarge)
	assert.Equal(t, 0, mock.BytesWritten())
}

func TestEngine_TransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("short write", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetShortWrite(2)
		reader := newTestReader(t, mock)

		_, err := reader.GetReaderInfo()
		assert.Equal(t, KindTransport, KindOf(err))
		require.ErrorIs(t, err, ErrTransportWrite)
	})

	t.Run("write error", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetError(testutil.CmdGetReaderInfo, NewTransportClosedError("write", "mock"))
		reader := newTestReader(t, mock)

		_, err := reader.GetReaderInfo()
		assert.Equal(t, KindTransport, KindOf(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetReadError(errors.New("usb disconnected"))
		reader := newTestReader(t, mock)

		_, err := reader.GetReaderInfo()
		assert.Equal(t, KindTransport, KindOf(err))
	})
}

func TestEngine_Canceled(t *testing.T) {
	t.Parallel()

	t.Run("before send", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		reader := newTestReader(t, mock)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := reader.GetReaderInfoContext(ctx)
		require.ErrorIs(t, err, ErrCanceled)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, mock.BytesWritten())
	})

	t.Run("while waiting", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		reader := newTestReader(t, mock, WithTimeout(2*time.Second))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := reader.GetReaderInfoContext(ctx)
		require.ErrorIs(t, err, ErrCanceled)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestEngine_ClosedReader(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	reader, err := New(mock)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())
	assert.False(t, mock.IsConnected())

	_, err = reader.GetInventory()
	require.ErrorIs(t, err, ErrReaderClosed)
	assert.Equal(t, KindClosed, KindOf(err))
}

func TestEngine_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponseFunc(testutil.NewVirtualReader().Handle)
	mock.SetDelay(5 * time.Millisecond)
	reader := newTestReader(t, mock, WithTimeout(time.Second))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := reader.GetReaderInfo()
				errs <- err
				return
			}
			_, err := reader.GetSettings()
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, callers/2, mock.GetCallCount(testutil.CmdGetReaderInfo))
	assert.Equal(t, callers/2, mock.GetCallCount(testutil.CmdGetSettings))
}

func TestEngine_StateWhileAwaiting(t *testing.T) {
	t.Parallel()

	mock := NewBlockingMockTransportWithResponse(testutil.BuildReaderInfoResponse())
	reader, err := New(mock, WithTimeout(2*time.Second), WithMaxRetries(0))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := reader.GetReaderInfo()
		done <- err
	}()

	require.Eventually(t, func() bool { return mock.Writes() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateAwaitingResponse, reader.State())

	mock.Unblock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("exchange did not complete after unblock")
	}
	assert.Equal(t, StateIdle, reader.State())
	assert.Equal(t, StateCompleted, reader.LastOutcome())
	require.NoError(t, reader.Close())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AwaitingResponse", StateAwaitingResponse.String())
	assert.Equal(t, "State(9)", State(9).String())
}

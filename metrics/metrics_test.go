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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

func newObservedReader(t *testing.T) (*uhf.Reader, *uhf.MockTransport, *ReaderMetrics) {
	t.Helper()
	m := NewReaderMetrics(prometheus.NewRegistry())
	mock := uhf.NewMockTransport()
	reader, err := uhf.New(mock,
		uhf.WithObserver(m),
		uhf.WithTimeout(50*time.Millisecond),
		uhf.WithMaxRetries(1),
		uhf.WithRetryBackoff(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader, mock, m
}

func TestReaderMetrics_SuccessfulExchange(t *testing.T) {
	t.Parallel()

	reader, mock, m := newObservedReader(t)
	mock.SetResponse(testutil.CmdGetReaderInfo, testutil.BuildReaderInfoResponse())

	_, err := reader.GetReaderInfo()
	require.NoError(t, err)

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.FramesSent.WithLabelValues("0x10")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.FramesReceived.WithLabelValues("0x11")), 0)
	assert.Positive(t, promtestutil.ToFloat64(m.BytesReceived))
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Exchanges.WithLabelValues("GetReaderInfo", "ok")), 0)
	assert.Equal(t, 1, promtestutil.CollectAndCount(m.ExchangeSeconds))
}

func TestReaderMetrics_DeviceError(t *testing.T) {
	t.Parallel()

	reader, mock, m := newObservedReader(t)
	mock.SetResponse(testutil.CmdReadMemory, testutil.BuildErrorFrame(testutil.CmdReadMemory, testutil.StatusNoTag))

	_, err := reader.Read(uhf.TagSelector{}, uhf.BankUser, 0, 1)
	require.ErrorIs(t, err, uhf.ErrDeviceError)

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.DeviceErrors.WithLabelValues("ReadMemory", "no tag")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Exchanges.WithLabelValues("ReadMemory", "DeviceError")), 0)
}

func TestReaderMetrics_TimeoutAndRetry(t *testing.T) {
	t.Parallel()

	reader, _, m := newObservedReader(t)

	_, err := reader.GetSettings()
	require.ErrorIs(t, err, uhf.ErrTimeout)

	assert.InDelta(t, 2, promtestutil.ToFloat64(m.Timeouts.WithLabelValues("GetSettings")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Retries.WithLabelValues("GetSettings")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.Exchanges.WithLabelValues("GetSettings", "TimeoutError")), 0)
}

func TestReaderMetrics_FieldGauge(t *testing.T) {
	t.Parallel()

	m := NewReaderMetrics(prometheus.NewRegistry())
	m.TagArrived()
	m.TagArrived()
	m.TagDeparted()
	m.FrameError("BadChecksum")

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.TagsInField), 0)
	assert.InDelta(t, 2, promtestutil.ToFloat64(m.TagArrivals), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.FrameErrors.WithLabelValues("BadChecksum")), 0)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	m := NewReaderMetrics(reg)
	m.FrameSent(0x20, 5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `uhf_frames_sent_total{cmd="0x20"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

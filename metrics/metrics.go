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

// Package metrics exports reader activity as Prometheus metrics
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	uhf "github.com/ZaparooProject/go-uhf"
)

const namespace = "uhf"

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ReaderMetrics implements uhf.Observer
type ReaderMetrics struct {
	FramesSent      *prometheus.CounterVec
	FramesReceived  *prometheus.CounterVec
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	FrameErrors     *prometheus.CounterVec
	Retries         *prometheus.CounterVec
	Timeouts        *prometheus.CounterVec
	DeviceErrors    *prometheus.CounterVec
	Exchanges       *prometheus.CounterVec
	ExchangeSeconds *prometheus.HistogramVec
	TagsInField     prometheus.Gauge
	TagArrivals     prometheus.Counter
}

var _ uhf.Observer = (*ReaderMetrics)(nil)

// NewReaderMetrics registers and returns reader metrics
func NewReaderMetrics(reg prometheus.Registerer) *ReaderMetrics {
	m := &ReaderMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Request frames written to the reader.",
		}, []string{"cmd"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Valid frames decoded from the reader.",
		}, []string{"cmd"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_sent_total",
			Help:      "Request payload bytes written.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_received_total",
			Help:      "Response payload bytes decoded.",
		}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Corrupt frames skipped during resynchronization.",
		}, []string{"kind"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Exchanges retried after a timeout or corrupt frame.",
		}, []string{"op"}),
		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Exchange attempts without a valid response.",
		}, []string{"op"}),
		DeviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Failure statuses reported by the reader.",
		}, []string{"op", "status"}),
		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Completed exchanges by result.",
		}, []string{"op", "result"}),
		ExchangeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Exchange latency including retries.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		TagsInField: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tags_in_field",
			Help:      "Tags currently tracked by continuous inventory.",
		}),
		TagArrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_arrivals_total",
			Help:      "Tags that entered the field.",
		}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.BytesSent, m.BytesReceived, m.FrameErrors,
		m.Retries, m.Timeouts, m.DeviceErrors, m.Exchanges, m.ExchangeSeconds, m.TagsInField, m.TagArrivals)
	return m
}

func cmdLabel(cmd byte) string {
	return fmt.Sprintf("0x%02X", cmd)
}

// FrameSent implements uhf.Observer
func (m *ReaderMetrics) FrameSent(cmd byte, size int) {
	m.FramesSent.WithLabelValues(cmdLabel(cmd)).Inc()
	m.BytesSent.Add(float64(size))
}

// FrameReceived implements uhf.Observer
func (m *ReaderMetrics) FrameReceived(cmd byte, size int) {
	m.FramesReceived.WithLabelValues(cmdLabel(cmd)).Inc()
	m.BytesReceived.Add(float64(size))
}

// FrameError implements uhf.Observer
func (m *ReaderMetrics) FrameError(kind string) {
	m.FrameErrors.WithLabelValues(kind).Inc()
}

// Retry implements uhf.Observer
func (m *ReaderMetrics) Retry(op string) {
	m.Retries.WithLabelValues(op).Inc()
}

// Timeout implements uhf.Observer
func (m *ReaderMetrics) Timeout(op string) {
	m.Timeouts.WithLabelValues(op).Inc()
}

// DeviceError implements uhf.Observer
func (m *ReaderMetrics) DeviceError(op string, status uhf.Status) {
	m.DeviceErrors.WithLabelValues(op, status.String()).Inc()
}

// Exchange implements uhf.Observer
func (m *ReaderMetrics) Exchange(op string, elapsed time.Duration, err error) {
	m.Exchanges.WithLabelValues(op, result(err)).Inc()
	m.ExchangeSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// TagArrived counts a tag entering the field
func (m *ReaderMetrics) TagArrived() {
	m.TagArrivals.Inc()
	m.TagsInField.Inc()
}

// TagDeparted records a tag leaving the field
func (m *ReaderMetrics) TagDeparted() {
	m.TagsInField.Dec()
}

// result maps an exchange error to a low-cardinality label
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := uhf.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

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
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Stats counts monitor activity
type Stats struct {
	LastRound        time.Time
	LastError        error
	Rounds           uint64
	Errors           uint64
	Arrivals         uint64
	Departures       uint64
	LastRoundLatency time.Duration
	Idle             bool
}

// Monitor runs continuous inventory rounds and reports tags entering and
// leaving the field.
type Monitor struct {
	lastActive    time.Time
	reader        *uhf.Reader
	config        *Config
	limiter       *rate.Limiter
	field         *Field
	report        *Report
	now           func() time.Time
	OnTagArrived  func(tag uhf.UhfTag) error
	OnTagDeparted func(state TagState)
	OnRound       func(tags []uhf.UhfTag)
	OnError       func(err error)
	stats         Stats
	mu            sync.Mutex
}

// NewMonitor creates a monitor for reader; a nil config uses DefaultConfig
func NewMonitor(reader *uhf.Reader, config *Config) (*Monitor, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid polling config: %w", err)
	}
	return &Monitor{
		reader:     reader,
		config:     config,
		limiter:    rate.NewLimiter(every(config.PollInterval), 1),
		field:      NewField(),
		report:     NewReport(),
		now:        time.Now,
		lastActive: time.Now(),
	}, nil
}

// Start runs inventory rounds until ctx is done or the reader is closed
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.lastActive = m.now()
	m.mu.Unlock()

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			// the next round would land past the deadline
			<-ctx.Done()
			return ctx.Err()
		}

		if err := m.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, uhf.ErrReaderClosed) || errors.Is(err, uhf.ErrTransportClosed) {
				m.departAll()
				return err
			}
		}
	}
}

// Poll runs a single inventory round and updates the field. A round with no
// tags is not an error. Tags decoded before a malformed frame are still
// observed and the decode error is returned.
func (m *Monitor) Poll(ctx context.Context) error {
	roundCtx := ctx
	if m.config.RoundTimeout > 0 {
		var cancel context.CancelFunc
		roundCtx, cancel = context.WithTimeout(ctx, m.config.RoundTimeout)
		defer cancel()
	}

	started := m.now()
	tags, err := m.reader.GetInventoryContext(roundCtx, m.config.InventoryOptions...)
	latency := m.now().Sub(started)

	if err != nil && uhf.KindOf(err) != uhf.KindMalformedPayload {
		if ctx.Err() == nil {
			m.recordError(err)
		}
		return fmt.Errorf("inventory round failed: %w", err)
	}

	m.process(tags, latency)
	if err != nil {
		m.recordError(err)
		return fmt.Errorf("inventory round incomplete: %w", err)
	}
	return nil
}

func (m *Monitor) process(tags []uhf.UhfTag, latency time.Duration) {
	now := m.now()

	m.mu.Lock()
	m.stats.Rounds++
	m.stats.LastRound = now
	m.stats.LastRoundLatency = latency
	arrived := m.field.Observe(tags, now)
	m.stats.Arrivals += uint64(len(arrived))
	m.report.Add(tags)
	m.mu.Unlock()

	for i := range arrived {
		if m.OnTagArrived == nil {
			break
		}
		if err := m.OnTagArrived(arrived[i]); err != nil {
			m.recordError(fmt.Errorf("tag %s arrival handler: %w", arrived[i].ID(), err))
		}
	}
	if m.OnRound != nil {
		m.OnRound(tags)
	}

	m.mu.Lock()
	departed := m.field.Expire(now, m.config.TagRemovalTimeout)
	m.stats.Departures += uint64(len(departed))
	if m.field.Len() > 0 {
		m.lastActive = now
	}
	m.adjustRate(now)
	m.mu.Unlock()

	m.notifyDeparted(departed)
}

// adjustRate slows polling once the field has been empty for IdleAfter
func (m *Monitor) adjustRate(now time.Time) {
	if m.config.IdlePollInterval <= 0 || m.config.IdleAfter <= 0 {
		return
	}
	idle := m.field.Len() == 0 && now.Sub(m.lastActive) >= m.config.IdleAfter
	if idle == m.stats.Idle {
		return
	}
	m.stats.Idle = idle
	if idle {
		m.limiter.SetLimit(every(m.config.IdlePollInterval))
		return
	}
	m.limiter.SetLimit(every(m.config.PollInterval))
}

func (m *Monitor) recordError(err error) {
	m.mu.Lock()
	m.stats.Errors++
	m.stats.LastError = err
	m.report.Errors++
	m.mu.Unlock()

	if m.OnError != nil {
		m.OnError(err)
	}
}

func (m *Monitor) departAll() {
	m.mu.Lock()
	departed := m.field.Snapshot()
	m.field.Reset()
	m.stats.Departures += uint64(len(departed))
	m.mu.Unlock()

	m.notifyDeparted(departed)
}

func (m *Monitor) notifyDeparted(departed []TagState) {
	if m.OnTagDeparted == nil {
		return
	}
	for _, state := range departed {
		m.OnTagDeparted(state)
	}
}

// WriteToTag runs op against tag while holding departures, so a tag that
// goes quiet during a long write is not reported as gone.
func (m *Monitor) WriteToTag(ctx context.Context, tag uhf.UhfTag, op WriteFunc) error {
	m.mu.Lock()
	m.field.TransitionToWriting()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.field.TransitionFromWriting()
		m.mu.Unlock()
	}()

	if err := op(ctx, m.reader, tag); err != nil {
		return fmt.Errorf("write to tag %s failed: %w", tag.ID(), err)
	}
	return nil
}

// GetState returns the field state
func (m *Monitor) GetState() FieldState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field.State()
}

// Snapshot returns the tags currently in the field
func (m *Monitor) Snapshot() []TagState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field.Snapshot()
}

// Stats returns a copy of the activity counters
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Report returns the report aggregated so far and starts a new one
func (m *Monitor) Report() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.report
	m.report = NewReport()
	return r
}

// GetReader returns the underlying reader
func (m *Monitor) GetReader() *uhf.Reader {
	return m.reader
}

// Close reports every present tag as departed and closes the reader
func (m *Monitor) Close() error {
	m.departAll()
	if err := m.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	return nil
}

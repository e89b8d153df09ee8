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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// ReaderConfig contains configuration options for the Reader
type ReaderConfig struct {
	// RetryConfig configures retry behavior for command exchanges
	RetryConfig *RetryConfig
	// Expected, when set, is verified by Init against the reader info
	Expected *ExpectedReader
	// Timeout bounds each attempt of a command exchange
	Timeout time.Duration
}

// DefaultReaderConfig returns default reader configuration
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     DefaultTimeout,
	}
}

// PowerController switches reader power. Reset uses it to recover a reader
// that stopped answering.
type PowerController interface {
	PowerCycle(ctx context.Context) error
}

// ReaderInfo identifies the reader hardware and firmware
type ReaderInfo struct {
	Firmware        string
	FirmwareVersion string
	Hardware        string
	HardwareVersion string
	SerialNumber    string
}

func (i *ReaderInfo) String() string {
	return fmt.Sprintf("%s %s (firmware %s %s, serial %s)",
		i.Hardware, i.HardwareVersion, i.Firmware, i.FirmwareVersion, i.SerialNumber)
}

// ExpectedReader names the hardware and firmware a Reader must report.
// Empty fields are not checked.
type ExpectedReader struct {
	Hardware           string
	Firmware           string
	MinFirmwareVersion string
}

// Reader is a UHF RFID reader bound to one transport.
//
// Reader is safe for concurrent use: every exchange holds the reader's lock
// from the moment the request is written until it resolves, so at most one
// command is in flight.
type Reader struct {
	engine *engine
	config *ReaderConfig
	power  PowerController
	info   *ReaderInfo
	infoMu sync.RWMutex
}

// New creates a Reader that owns transport
func New(transport Transport, opts ...Option) (*Reader, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is nil", ErrInvalidParameter)
	}

	r := &Reader{
		engine: newEngine(transport),
		config: DefaultReaderConfig(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.engine.retry = r.config.RetryConfig.Clone()
	r.engine.timeout = r.config.Timeout
	return r, nil
}

// Transport returns the underlying transport
func (r *Reader) Transport() Transport {
	return r.engine.transport
}

// State returns the engine state; StateAwaitingResponse while a command is in flight
func (r *Reader) State() State {
	return State(r.engine.state.Load())
}

// LastOutcome returns the terminal state of the most recent exchange
func (r *Reader) LastOutcome() State {
	return State(r.engine.last.Load())
}

// Info returns the reader info cached by Init or GetReaderInfo, or nil
func (r *Reader) Info() *ReaderInfo {
	r.infoMu.RLock()
	defer r.infoMu.RUnlock()
	return r.info
}

// SetTimeout sets the per-attempt response timeout
func (r *Reader) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
	}
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	r.config.Timeout = timeout
	r.engine.timeout = timeout
	return nil
}

// SetRetryConfig updates the retry configuration
func (r *Reader) SetRetryConfig(config *RetryConfig) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	r.config.RetryConfig = config.Clone()
	r.engine.retry = r.config.RetryConfig.Clone()
}

// Init verifies that the reader answers and matches the expected reader
func (r *Reader) Init() error {
	return r.InitContext(context.Background())
}

// InitContext verifies that the reader answers and matches the expected reader
func (r *Reader) InitContext(ctx context.Context) error {
	info, err := r.GetReaderInfoContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get reader info: %w", err)
	}
	debugf("reader: %s", info)

	if err := r.config.Expected.check(info); err != nil {
		debugln("reader rejected:", err)
		return err
	}
	return nil
}

func (e *ExpectedReader) check(info *ReaderInfo) error {
	if e == nil {
		return nil
	}
	if e.Hardware != "" && !strings.EqualFold(e.Hardware, info.Hardware) {
		return fmt.Errorf("%w: hardware %q, want %q", ErrUnexpectedReader, info.Hardware, e.Hardware)
	}
	if e.Firmware != "" && !strings.EqualFold(e.Firmware, info.Firmware) {
		return fmt.Errorf("%w: firmware %q, want %q", ErrUnexpectedReader, info.Firmware, e.Firmware)
	}
	if e.MinFirmwareVersion != "" {
		cmp, err := compareVersions(info.FirmwareVersion, e.MinFirmwareVersion)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnexpectedReader, err)
		}
		if cmp < 0 {
			return fmt.Errorf("%w: firmware version %s older than %s",
				ErrUnexpectedReader, info.FirmwareVersion, e.MinFirmwareVersion)
		}
	}
	return nil
}

// compareVersions compares dotted numeric versions such as "1.3" and "01.02.07"
func compareVersions(a, b string) (int, error) {
	pa, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func parseVersion(v string) ([]int, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil, errors.New("empty version")
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", v, err)
		}
		out[i] = n
	}
	return out, nil
}

// GetReaderInfo queries the reader hardware and firmware identification
func (r *Reader) GetReaderInfo() (*ReaderInfo, error) {
	return r.GetReaderInfoContext(context.Background())
}

// GetReaderInfoContext queries the reader hardware and firmware identification
func (r *Reader) GetReaderInfoContext(ctx context.Context) (*ReaderInfo, error) {
	var info *ReaderInfo
	cmd := &command{
		op:      "GetReaderInfo",
		code:    cmdGetReaderInfo,
		expects: []byte{respReaderInfo},
		handle: func(f frame.Frame) (bool, error) {
			var err error
			info, err = decodeReaderInfo(f.Payload)
			return true, err
		},
	}
	if err := r.engine.exchange(ctx, cmd); err != nil {
		return nil, err
	}

	r.infoMu.Lock()
	r.info = info
	r.infoMu.Unlock()
	return info, nil
}

// Reset power-cycles the reader through its PowerController and drops any
// buffered input.
func (r *Reader) Reset(ctx context.Context) error {
	if r.power == nil {
		return fmt.Errorf("%w: no power controller configured", ErrInvalidParameter)
	}

	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	if r.engine.closed {
		return newReaderError(KindClosed, "Reset", nil)
	}
	if err := r.power.PowerCycle(ctx); err != nil {
		return fmt.Errorf("failed to power cycle reader: %w", err)
	}
	r.engine.discardInput()
	r.engine.setState(StateIdle)
	return nil
}

// Close closes the transport. Later operations fail with ErrReaderClosed.
func (r *Reader) Close() error {
	return r.engine.close()
}

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
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrVerificationFailed means read-back data did not match what was written
var ErrVerificationFailed = errors.New("verification failed")

// MaxWriteBytes is the largest data block a single write request carries
const MaxWriteBytes = 0xFF - 1

func validateBank(bank MemoryBank) error {
	if !bank.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, bank)
	}
	return nil
}

func validateWriteData(bank MemoryBank, data []byte) error {
	if err := validateBank(bank); err != nil {
		return err
	}
	if bank == BankTID {
		return fmt.Errorf("%w: TID bank is read-only", ErrInvalidParameter)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: no data to write", ErrInvalidParameter)
	}
	if len(data) > MaxWriteBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrDataTooLarge, len(data), MaxWriteBytes)
	}
	if len(data)%2 != 0 {
		return fmt.Errorf("%w: data must be whole 16-bit words, got %d bytes", ErrInvalidParameter, len(data))
	}
	return nil
}

// ValidationConfig holds configuration for verified reads and writes
type ValidationConfig struct {
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration

	// ReadRetries specifies max number of read retries on validation failure
	ReadRetries int

	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int

	// EnableReadVerification requires consecutive identical reads
	EnableReadVerification bool

	// EnableWriteVerification reads back every write and compares
	EnableWriteVerification bool
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		EnableReadVerification:  true,
		ReadRetries:             3,
		EnableWriteVerification: true,
		WriteRetries:            2,
		RetryDelay:              20 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation    time.Time
	TotalOperations   uint64
	FailedValidations uint64
}

// ValidatedReader wraps a Reader with read verification and write-then-verify
type ValidatedReader struct {
	*Reader
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.Mutex
}

// NewValidatedReader wraps reader; a nil config uses DefaultValidationConfig
func NewValidatedReader(reader *Reader, config *ValidationConfig) *ValidatedReader {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidatedReader{Reader: reader, config: config}
}

// GetValidationMetrics returns current validation metrics
func (vr *ValidatedReader) GetValidationMetrics() ValidationMetrics {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return vr.metrics
}

func (vr *ValidatedReader) record(ok bool) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	vr.metrics.TotalOperations++
	vr.metrics.LastValidation = time.Now()
	if !ok {
		vr.metrics.FailedValidations++
	}
}

// ReadValidated reads tag memory and, when enabled, repeats the read until two
// consecutive results agree.
func (vr *ValidatedReader) ReadValidated(
	ctx context.Context, sel TagSelector, bank MemoryBank, start uint16, words uint8,
) ([]byte, error) {
	readFunc := func() ([]byte, error) {
		return vr.ReadContext(ctx, sel, bank, start, words)
	}

	data, err := readFunc()
	if err != nil || !vr.config.EnableReadVerification {
		return data, err
	}

	data, err = performReadVerification(ctx, data, vr.config, readFunc)
	vr.record(err == nil)
	return data, err
}

func performReadVerification(
	ctx context.Context, initial []byte, config *ValidationConfig, readFunc func() ([]byte, error),
) ([]byte, error) {
	var lastErr error
	last := initial

	for retry := 0; retry < config.ReadRetries; retry++ {
		if retry > 0 {
			if err := sleepContext(ctx, config.RetryDelay); err != nil {
				return nil, err
			}
		}

		verify, err := readFunc()
		if err != nil {
			if !IsRetryable(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if bytes.Equal(last, verify) {
			return verify, nil
		}
		last = verify
	}

	if lastErr != nil {
		return nil, fmt.Errorf("read validation failed after %d retries: %w", config.ReadRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: inconsistent reads after %d retries", ErrVerificationFailed, config.ReadRetries)
}

// WriteVerified writes data and, when enabled, reads it back and compares.
// Device errors are returned immediately.
func (vr *ValidatedReader) WriteVerified(
	ctx context.Context, sel TagSelector, bank MemoryBank, start uint16, data []byte,
) error {
	var lastErr error

	for retry := 0; retry <= vr.config.WriteRetries; retry++ {
		if retry > 0 {
			if err := sleepContext(ctx, vr.config.RetryDelay); err != nil {
				return err
			}
		}

		if err := vr.WriteContext(ctx, sel, bank, start, data); err != nil {
			if !IsRetryable(err) {
				vr.record(false)
				return err
			}
			lastErr = err
			continue
		}

		if !vr.config.EnableWriteVerification {
			return nil
		}

		readSel := sel
		if bank == BankEPC && start == epcBankEPCWord {
			readSel = SelectEPC(data)
		}
		readBack, err := vr.ReadContext(ctx, readSel, bank, start, uint8(len(data)/2))
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(data, readBack) {
			vr.record(true)
			return nil
		}
		lastErr = fmt.Errorf("%w: read back % X", ErrVerificationFailed, readBack)
	}

	vr.record(false)
	return fmt.Errorf("write validation failed after %d retries: %w", vr.config.WriteRetries, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

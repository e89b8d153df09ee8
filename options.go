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
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Option is a functional option for configuring a Reader
type Option func(*Reader) error

// WithRetryConfig sets the retry configuration for the reader
func WithRetryConfig(config *RetryConfig) Option {
	return func(r *Reader) error {
		r.config.RetryConfig = config.Clone()
		return nil
	}
}

// WithTimeout sets the per-attempt response timeout
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		r.config.Timeout = timeout
		return nil
	}
}

// WithMaxRetries sets how many times a timed-out exchange is retried.
// Zero disables retries.
func WithMaxRetries(retries int) Option {
	return func(r *Reader) error {
		if retries < 0 {
			return fmt.Errorf("%w: retries must not be negative, got %d", ErrInvalidParameter, retries)
		}
		if r.config.RetryConfig == nil {
			r.config.RetryConfig = DefaultRetryConfig()
		}
		r.config.RetryConfig.MaxAttempts = retries + 1
		return nil
	}
}

// WithRetryBackoff sets the initial backoff duration for retries
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(r *Reader) error {
		if r.config.RetryConfig == nil {
			r.config.RetryConfig = DefaultRetryConfig()
		}
		r.config.RetryConfig.InitialBackoff = initialBackoff
		return nil
	}
}

// WithExpectedReader makes Init reject readers that do not match expected
func WithExpectedReader(expected ExpectedReader) Option {
	return func(r *Reader) error {
		r.config.Expected = &expected
		return nil
	}
}

// WithObserver installs a protocol event observer
func WithObserver(observer Observer) Option {
	return func(r *Reader) error {
		if observer == nil {
			observer = NopObserver{}
		}
		r.engine.observer = observer
		return nil
	}
}

// WithLogger sets the package logger used for protocol debug output
func WithLogger(l *zap.Logger) Option {
	return func(*Reader) error {
		SetLogger(l)
		return nil
	}
}

// WithFrameFormat overrides the frame start and end markers and the payload bound
func WithFrameFormat(start, end byte, maxPayload int) Option {
	return func(r *Reader) error {
		if start == end {
			return fmt.Errorf("%w: start and end markers must differ", ErrInvalidParameter)
		}
		if maxPayload < 1 || maxPayload > frame.MaxPayloadLength {
			return fmt.Errorf("%w: max payload %d outside 1..%d", ErrInvalidParameter, maxPayload, frame.MaxPayloadLength)
		}
		r.engine.format = frame.Format{Start: start, End: end, MaxPayload: maxPayload}
		return nil
	}
}

// WithPowerControl sets the controller Reset uses to power-cycle the reader
func WithPowerControl(pc PowerController) Option {
	return func(r *Reader) error {
		r.power = pc
		return nil
	}
}

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

// Package transport provides retry helpers shared by transport implementations
package transport

import (
	"context"
	"fmt"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// RetryOperation is one attempt of an operation.
// It returns the result, whether another attempt is wanted, and a permanent
// error that stops retrying.
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures WithRetry
type RetryConfig struct {
	// OnRetry runs before each retry; an error aborts
	OnRetry func(attempt int) error
	// Exhausted is wrapped into the error returned when attempts run out
	Exhausted   error
	Description string
	Port        string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry runs operation until it no longer asks for a retry, returns an
// error, or MaxRetries retries have been spent.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt == config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}
		if err := sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	cause := config.Exhausted
	if cause == nil {
		cause = uhf.ErrTransportWrite
	}
	return zero, uhf.NewTransportError(config.Description, config.Port,
		fmt.Errorf("%w after %d retries", cause, config.MaxRetries), uhf.ErrorTypeTransient)
}

// TimeoutRetry polls operation every interval until it stops asking for a
// retry, returns an error, or timeout elapses.
func TimeoutRetry[T any](
	ctx context.Context, timeout, interval time.Duration, description string, operation RetryOperation[T],
) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if time.Now().Add(interval).After(deadline) {
			return zero, uhf.NewTimeoutError(description, "")
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

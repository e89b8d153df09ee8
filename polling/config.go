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
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Config holds continuous inventory settings
type Config struct {
	// InventoryOptions are passed to every inventory round
	InventoryOptions []uhf.InventoryOption

	// PollInterval is the minimum time between inventory rounds
	PollInterval time.Duration

	// IdlePollInterval is used once the field has been empty for IdleAfter
	IdlePollInterval time.Duration

	// IdleAfter is how long the field must stay empty before slowing down
	IdleAfter time.Duration

	// TagRemovalTimeout is how long a tag may go unseen before it departs
	TagRemovalTimeout time.Duration

	// RoundTimeout bounds a single inventory round
	RoundTimeout time.Duration
}

// DefaultConfig returns default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:      100 * time.Millisecond,
		IdlePollInterval:  500 * time.Millisecond,
		IdleAfter:         5 * time.Second,
		TagRemovalTimeout: time.Second,
		RoundTimeout:      2 * time.Second,
	}
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.TagRemovalTimeout <= 0 {
		return errors.New("tag removal timeout must be positive")
	}
	if c.IdlePollInterval > 0 && c.IdlePollInterval < c.PollInterval {
		return fmt.Errorf("idle poll interval %v shorter than poll interval %v", c.IdlePollInterval, c.PollInterval)
	}
	return nil
}

// every converts a poll interval to a limiter rate
func every(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

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

// Package hwctl switches reader power through a GPIO enable pin
package hwctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Default timings for a power cycle
const (
	DefaultOffTime    = 200 * time.Millisecond
	DefaultSettleTime = 500 * time.Millisecond
)

// ErrPinNotFound is returned when no GPIO pin has the requested name
var ErrPinNotFound = errors.New("gpio pin not found")

// Option configures a PinController
type Option func(*PinController)

// WithActiveLow treats a low pin level as powered
func WithActiveLow() Option {
	return func(p *PinController) {
		p.activeLow = true
	}
}

// WithOffTime sets how long power stays off during a cycle
func WithOffTime(d time.Duration) Option {
	return func(p *PinController) {
		p.offTime = d
	}
}

// WithSettleTime sets how long PowerCycle waits for the reader to boot
func WithSettleTime(d time.Duration) Option {
	return func(p *PinController) {
		p.settleTime = d
	}
}

// PinController implements uhf.PowerController with an enable pin
type PinController struct {
	pin        gpio.PinOut
	offTime    time.Duration
	settleTime time.Duration
	mu         sync.Mutex
	activeLow  bool
}

// New wraps pin. The pin is not driven until PowerOn, PowerOff or PowerCycle.
func New(pin gpio.PinOut, opts ...Option) (*PinController, error) {
	if pin == nil {
		return nil, errors.New("pin cannot be nil")
	}
	p := &PinController{
		pin:        pin,
		offTime:    DefaultOffTime,
		settleTime: DefaultSettleTime,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Open initializes the host drivers and looks up the pin by name, such as
// "GPIO17"
func Open(name string, opts ...Option) (*PinController, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return New(pin, opts...)
}

func (p *PinController) level(on bool) gpio.Level {
	return gpio.Level(on != p.activeLow)
}

func (p *PinController) set(on bool) error {
	if err := p.pin.Out(p.level(on)); err != nil {
		return fmt.Errorf("failed to drive %s: %w", p.pin, err)
	}
	return nil
}

// PowerOn enables the reader
func (p *PinController) PowerOn() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set(true)
}

// PowerOff disables the reader
func (p *PinController) PowerOff() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set(false)
}

// PowerCycle switches the reader off, waits the off time, switches it back
// on and waits for it to settle. Power is restored even if ctx is canceled
// while off.
func (p *PinController) PowerCycle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.set(false); err != nil {
		return err
	}
	waitErr := sleep(ctx, p.offTime)
	if err := p.set(true); err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}
	return sleep(ctx, p.settleTime)
}

// String returns the pin name
func (p *PinController) String() string {
	return p.pin.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("power cycle interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

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
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Power limits in dBm steps
const (
	MinPower = 0
	MaxPower = 9
)

// MaxQ is the largest Gen2 anticollision Q value
const MaxQ = 15

// Region is a UHF frequency regulation region
type Region byte

// Supported regions
const (
	RegionETSI     Region = 0x00
	RegionFCC      Region = 0x01
	RegionETSIHigh Region = 0x02
)

func (r Region) String() string {
	switch r {
	case RegionETSI:
		return "ETSI"
	case RegionFCC:
		return "FCC"
	case RegionETSIHigh:
		return "ETSI_HIGH"
	default:
		return fmt.Sprintf("Region(%d)", byte(r))
	}
}

// ParseRegion parses a region name such as "ETSI" or "fcc"
func ParseRegion(s string) (Region, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ETSI":
		return RegionETSI, nil
	case "FCC":
		return RegionFCC, nil
	case "ETSI_HIGH", "ETSIHIGH":
		return RegionETSIHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown region %q", ErrInvalidParameter, s)
	}
}

// QSettings holds the anticollision Q start value and its bounds
type QSettings struct {
	Start int
	Min   int
	Max   int
}

// TagSize returns the expected tag population for the Q start value
func (q QSettings) TagSize() int {
	return 1 << q.Start
}

// InventorySettings selects what an inventory round reports
type InventorySettings struct {
	OnlyNewTags bool
	WithRSSI    bool
	WithTID     bool
}

func (s InventorySettings) flags() byte {
	var f byte
	if s.OnlyNewTags {
		f |= settingOnlyNewTags
	}
	if s.WithRSSI {
		f |= settingWithRSSI
	}
	if s.WithTID {
		f |= settingWithTID
	}
	return f
}

// Settings is the reader configuration reported by GetSettings
type Settings struct {
	Q         QSettings
	Inventory InventorySettings
	Power     int
	Region    Region
}

// GetSettings reads the current reader configuration
func (r *Reader) GetSettings() (*Settings, error) {
	return r.GetSettingsContext(context.Background())
}

// GetSettingsContext reads the current reader configuration with context support
func (r *Reader) GetSettingsContext(ctx context.Context) (*Settings, error) {
	var settings *Settings
	cmd := &command{
		op:      "GetSettings",
		code:    cmdGetSettings,
		expects: []byte{responseCode(cmdGetSettings)},
		handle: func(f frame.Frame) (bool, error) {
			var err error
			settings, err = decodeSettings(f.Payload)
			return true, err
		},
	}
	if err := r.engine.exchange(ctx, cmd); err != nil {
		return nil, err
	}
	return settings, nil
}

// simple sends a request whose response is a bare status acknowledgement
func (r *Reader) simple(ctx context.Context, op string, code byte, payload []byte) error {
	cmd := &command{
		op:      op,
		code:    code,
		payload: payload,
		expects: []byte{responseCode(code)},
		handle: func(f frame.Frame) (bool, error) {
			return true, decodeAck(f.Payload)
		},
	}
	return r.engine.exchange(ctx, cmd)
}

// GetPower returns the antenna power level
func (r *Reader) GetPower() (int, error) {
	return r.GetPowerContext(context.Background())
}

// GetPowerContext is GetPower with context support
func (r *Reader) GetPowerContext(ctx context.Context) (int, error) {
	s, err := r.GetSettingsContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.Power, nil
}

// SetPower sets the antenna power level for all antennas (MinPower..MaxPower)
func (r *Reader) SetPower(power int) error {
	return r.SetPowerContext(context.Background(), power)
}

// SetPowerContext is SetPower with context support
func (r *Reader) SetPowerContext(ctx context.Context, power int) error {
	if power < MinPower || power > MaxPower {
		return newReaderError(KindEncoding, "SetPower",
			fmt.Errorf("%w: power %d outside %d..%d", ErrInvalidParameter, power, MinPower, MaxPower))
	}
	return r.simple(ctx, "SetPower", cmdSetPower, []byte{byte(power)})
}

// GetRegion returns the configured frequency region
func (r *Reader) GetRegion() (Region, error) {
	return r.GetRegionContext(context.Background())
}

// GetRegionContext is GetRegion with context support
func (r *Reader) GetRegionContext(ctx context.Context) (Region, error) {
	s, err := r.GetSettingsContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.Region, nil
}

// SetRegion sets the frequency region
func (r *Reader) SetRegion(region Region) error {
	return r.SetRegionContext(context.Background(), region)
}

// SetRegionContext is SetRegion with context support
func (r *Reader) SetRegionContext(ctx context.Context, region Region) error {
	if region > RegionETSIHigh {
		return newReaderError(KindEncoding, "SetRegion", fmt.Errorf("%w: %s", ErrInvalidParameter, region))
	}
	return r.simple(ctx, "SetRegion", cmdSetRegion, []byte{byte(region)})
}

// GetTagSize returns the expected tag population derived from the Q start value
func (r *Reader) GetTagSize() (int, error) {
	return r.GetTagSizeContext(context.Background())
}

// GetTagSizeContext is GetTagSize with context support
func (r *Reader) GetTagSizeContext(ctx context.Context) (int, error) {
	s, err := r.GetSettingsContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.Q.TagSize(), nil
}

// SetTagSize configures anticollision for an expected population of
// expected tags, bounded by minTags and maxTags. A zero bound is not limited.
func (r *Reader) SetTagSize(expected, minTags, maxTags int) error {
	return r.SetTagSizeContext(context.Background(), expected, minTags, maxTags)
}

// SetTagSizeContext is SetTagSize with context support
func (r *Reader) SetTagSizeContext(ctx context.Context, expected, minTags, maxTags int) error {
	if expected < 1 || minTags < 0 || maxTags < 0 || (maxTags > 0 && minTags > maxTags) {
		return newReaderError(KindEncoding, "SetQ",
			fmt.Errorf("%w: tag size %d bounds %d..%d", ErrInvalidParameter, expected, minTags, maxTags))
	}
	q := QSettings{Start: qFor(expected), Min: 0, Max: MaxQ}
	if minTags > 0 {
		q.Min = qFor(minTags)
	}
	if maxTags > 0 {
		q.Max = qFor(maxTags)
	}
	if q.Start < q.Min {
		q.Start = q.Min
	}
	if q.Start > q.Max {
		q.Start = q.Max
	}
	return r.SetQContext(ctx, q)
}

// SetQ sets the anticollision Q values directly
func (r *Reader) SetQ(q QSettings) error {
	return r.SetQContext(context.Background(), q)
}

// SetQContext is SetQ with context support
func (r *Reader) SetQContext(ctx context.Context, q QSettings) error {
	if q.Min < 0 || q.Max > MaxQ || q.Min > q.Max || q.Start < q.Min || q.Start > q.Max {
		return newReaderError(KindEncoding, "SetQ",
			fmt.Errorf("%w: Q %d outside %d..%d (limit %d)", ErrInvalidParameter, q.Start, q.Min, q.Max, MaxQ))
	}
	return r.simple(ctx, "SetQ", cmdSetQ, []byte{byte(q.Start), byte(q.Min), byte(q.Max)})
}

// qFor returns the smallest Q with 2^Q >= n, capped at MaxQ
func qFor(n int) int {
	q := 0
	for q < MaxQ && n > 1<<q {
		q++
	}
	return q
}

// GetInventorySettings returns the inventory report settings
func (r *Reader) GetInventorySettings() (InventorySettings, error) {
	return r.GetInventorySettingsContext(context.Background())
}

// GetInventorySettingsContext is GetInventorySettings with context support
func (r *Reader) GetInventorySettingsContext(ctx context.Context) (InventorySettings, error) {
	s, err := r.GetSettingsContext(ctx)
	if err != nil {
		return InventorySettings{}, err
	}
	return s.Inventory, nil
}

// SetInventorySettings selects what inventory rounds report
func (r *Reader) SetInventorySettings(settings InventorySettings) error {
	return r.SetInventorySettingsContext(context.Background(), settings)
}

// SetInventorySettingsContext is SetInventorySettings with context support
func (r *Reader) SetInventorySettingsContext(ctx context.Context, settings InventorySettings) error {
	return r.simple(ctx, "SetInventorySettings", cmdSetInventorySettings, []byte{settings.flags()})
}

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
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// MaxAntenna is the highest antenna port an inventory can address
const MaxAntenna = 4

// InventoryOption configures a single inventory round
type InventoryOption func(*inventoryRequest) error

type inventoryRequest struct {
	filter  Filter
	antenna int
}

// WithAntenna runs the round on antenna port n (1..MaxAntenna). The default,
// zero, uses the reader's current antenna.
func WithAntenna(n int) InventoryOption {
	return func(req *inventoryRequest) error {
		if n < 0 || n > MaxAntenna {
			return fmt.Errorf("%w: antenna %d outside 0..%d", ErrInvalidParameter, n, MaxAntenna)
		}
		req.antenna = n
		return nil
	}
}

// WithFilter restricts the round to tags matching f
func WithFilter(f Filter) InventoryOption {
	return func(req *inventoryRequest) error {
		if !f.Bank.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, f.Bank)
		}
		req.filter = Filter{Bank: f.Bank, Start: f.Start, Mask: append([]byte(nil), f.Mask...)}
		return nil
	}
}

// payload encodes [antenna][maskBank][maskStart][maskLen][mask]
func (req *inventoryRequest) payload() ([]byte, error) {
	if len(req.filter.Mask) > 0xFF {
		return nil, fmt.Errorf("%w: filter mask is %d bytes", ErrDataTooLarge, len(req.filter.Mask))
	}
	out := make([]byte, 0, 4+len(req.filter.Mask))
	out = append(out, byte(req.antenna), byte(req.filter.Bank), req.filter.Start, byte(len(req.filter.Mask)))
	return append(out, req.filter.Mask...), nil
}

// inventoryRound accumulates tag frames until the terminal frame arrives
type inventoryRound struct {
	decodeErr error
	tags      []UhfTag
	antenna   int
}

func (round *inventoryRound) reset() {
	round.tags = nil
	round.decodeErr = nil
}

func (round *inventoryRound) handle(f frame.Frame) (bool, error) {
	switch f.Command {
	case respInventoryTag:
		tag, err := decodeTag(f.Payload, round.antenna, time.Now())
		if err != nil {
			// Keep draining the round so the line is idle afterwards.
			debugf("inventory: dropping tag frame: %v", err)
			if round.decodeErr == nil {
				round.decodeErr = err
			}
			return false, nil
		}
		round.tags = append(round.tags, tag)
		return false, nil

	case respInventoryEnd:
		end, err := decodeInventoryEnd(f.Payload)
		if err != nil {
			return true, err
		}
		if end.antenna > 0 {
			for i := range round.tags {
				if round.tags[i].Antenna == 0 {
					round.tags[i].Antenna = end.antenna
				}
			}
		}
		if !end.status.OK() {
			return true, &ReaderError{Kind: KindDevice, Status: end.status, HasStatus: true}
		}
		if round.decodeErr != nil {
			return true, round.decodeErr
		}
		if int(end.count) != len(round.tags) {
			return true, malformed(fmt.Errorf("%w: reader reported %d tags, decoded %d",
				ErrCountMismatch, end.count, len(round.tags)))
		}
		return true, nil

	default:
		return false, nil
	}
}

// GetInventory runs one inventory round and returns the tags in the order
// the reader reported them. An empty field yields an empty slice.
func (r *Reader) GetInventory(opts ...InventoryOption) ([]UhfTag, error) {
	return r.GetInventoryContext(context.Background(), opts...)
}

// GetInventoryContext runs one inventory round with context support.
//
// Inventory decoding is best-effort: when a tag frame is malformed or the
// tag count in the terminal frame does not match, the tags decoded so far
// are returned together with a KindMalformedPayload error.
func (r *Reader) GetInventoryContext(ctx context.Context, opts ...InventoryOption) ([]UhfTag, error) {
	req := &inventoryRequest{}
	for _, opt := range opts {
		if err := opt(req); err != nil {
			return nil, newReaderError(KindEncoding, "Inventory", err)
		}
	}

	payload, err := req.payload()
	if err != nil {
		return nil, newReaderError(KindEncoding, "Inventory", err)
	}

	round := &inventoryRound{antenna: req.antenna}
	cmd := &command{
		op:      "Inventory",
		code:    cmdInventory,
		payload: payload,
		expects: []byte{respInventoryTag, respInventoryEnd},
		handle:  round.handle,
		reset:   round.reset,
	}

	err = r.engine.exchange(ctx, cmd)
	if err != nil {
		if KindOf(err) == KindMalformedPayload {
			return nonNil(round.tags), err
		}
		return nil, err
	}
	return nonNil(round.tags), nil
}

func nonNil(tags []UhfTag) []UhfTag {
	if tags == nil {
		return []UhfTag{}
	}
	return tags
}

// IsCountMismatch reports whether err is a best-effort inventory result
// whose tag count disagreed with the reader's terminal frame.
func IsCountMismatch(err error) bool {
	return errors.Is(err, ErrCountMismatch)
}

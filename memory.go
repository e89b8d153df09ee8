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
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Gen2 EPC bank layout, in words
const (
	epcBankPCWord    = 1
	epcBankEPCWord   = 2
	pcLengthShift    = 11
	pcLengthMask     = 0xF800
	maxEPCWords      = 31
	maxSelectorBytes = 62
)

// appendSelector encodes [selLen][sel]
func appendSelector(buf []byte, sel TagSelector) ([]byte, error) {
	if len(sel.EPC) > maxSelectorBytes {
		return nil, fmt.Errorf("%w: selector EPC is %d bytes, max %d", ErrDataTooLarge, len(sel.EPC), maxSelectorBytes)
	}
	buf = append(buf, byte(len(sel.EPC)))
	return append(buf, sel.EPC...), nil
}

// Read reads words 16-bit words from bank starting at word address start
func (r *Reader) Read(sel TagSelector, bank MemoryBank, start uint16, words uint8) ([]byte, error) {
	return r.ReadContext(context.Background(), sel, bank, start, words)
}

// ReadContext reads tag memory with context support. The returned slice
// holds exactly 2*words bytes.
func (r *Reader) ReadContext(
	ctx context.Context, sel TagSelector, bank MemoryBank, start uint16, words uint8,
) ([]byte, error) {
	const op = "ReadMemory"

	if err := validateBank(bank); err != nil {
		return nil, newReaderError(KindEncoding, op, err)
	}
	if words == 0 {
		return nil, newReaderError(KindEncoding, op, fmt.Errorf("%w: word count must be positive", ErrInvalidParameter))
	}
	// the response carries [status][data...] in one frame
	if limit := r.engine.format.PayloadLimit(); 1+2*int(words) > limit {
		return nil, newReaderError(KindEncoding, op,
			fmt.Errorf("%w: %d words do not fit a %d-byte response", ErrDataTooLarge, words, limit))
	}

	payload := make([]byte, 0, 5+len(sel.EPC))
	payload = append(payload, byte(bank))
	payload = binary.BigEndian.AppendUint16(payload, start)
	payload = append(payload, words)
	payload, err := appendSelector(payload, sel)
	if err != nil {
		return nil, newReaderError(KindEncoding, op, err)
	}

	var data []byte
	cmd := &command{
		op:      op,
		code:    cmdReadMemory,
		payload: payload,
		expects: []byte{responseCode(cmdReadMemory)},
		handle: func(f frame.Frame) (bool, error) {
			d, err := decodeStatus(f.Payload)
			if err != nil {
				return true, err
			}
			if len(d) != int(words)*2 {
				return true, malformed(fmt.Errorf("read returned %d bytes, requested %d words", len(d), words))
			}
			data = d
			return true, nil
		},
	}
	if err := r.engine.exchange(ctx, cmd); err != nil {
		return nil, err
	}
	return data, nil
}

// Write writes data to bank starting at word address start. data must hold
// whole 16-bit words. The call succeeds only if the reader confirms every
// word; a partial write is reported as a device error.
func (r *Reader) Write(sel TagSelector, bank MemoryBank, start uint16, data []byte) error {
	return r.WriteContext(context.Background(), sel, bank, start, data)
}

// WriteContext writes tag memory with context support
func (r *Reader) WriteContext(ctx context.Context, sel TagSelector, bank MemoryBank, start uint16, data []byte) error {
	const op = "WriteMemory"

	if err := validateWriteData(bank, data); err != nil {
		return newReaderError(KindEncoding, op, err)
	}

	payload := make([]byte, 0, 6+len(sel.EPC)+len(data))
	payload = append(payload, byte(bank))
	payload = binary.BigEndian.AppendUint16(payload, start)
	payload, err := appendSelector(payload, sel)
	if err != nil {
		return newReaderError(KindEncoding, op, err)
	}
	payload = append(payload, byte(len(data)))
	payload = append(payload, data...)

	words := len(data) / 2
	cmd := &command{
		op:      op,
		code:    cmdWriteMemory,
		payload: payload,
		expects: []byte{responseCode(cmdWriteMemory)},
		handle: func(f frame.Frame) (bool, error) {
			return true, decodeWriteAck(f.Payload, words)
		},
	}
	return r.engine.exchange(ctx, cmd)
}

// WriteEPC replaces the EPC of the selected tag and updates the length
// field of its protocol control word to match.
func (r *Reader) WriteEPC(sel TagSelector, epc []byte) error {
	return r.WriteEPCContext(context.Background(), sel, epc)
}

// WriteEPCContext replaces the EPC of the selected tag with context support
func (r *Reader) WriteEPCContext(ctx context.Context, sel TagSelector, epc []byte) error {
	if len(epc) == 0 || len(epc)%2 != 0 || len(epc)/2 > maxEPCWords {
		return newReaderError(KindEncoding, "WriteEPC",
			fmt.Errorf("%w: EPC must be 1..%d whole words, got %d bytes", ErrInvalidParameter, maxEPCWords, len(epc)))
	}

	pcRaw, err := r.ReadContext(ctx, sel, BankEPC, epcBankPCWord, 1)
	if err != nil {
		return fmt.Errorf("failed to read PC word: %w", err)
	}
	pc := binary.BigEndian.Uint16(pcRaw)
	newPC := pc&^pcLengthMask | uint16(len(epc)/2)<<pcLengthShift

	if err := r.WriteContext(ctx, sel, BankEPC, epcBankEPCWord, epc); err != nil {
		return fmt.Errorf("failed to write EPC: %w", err)
	}
	if newPC == pc {
		return nil
	}

	debugf("updating PC word %04X -> %04X", pc, newPC)
	if err := r.WriteContext(ctx, SelectEPC(epc), BankEPC, epcBankPCWord, binary.BigEndian.AppendUint16(nil, newPC)); err != nil {
		return fmt.Errorf("failed to write PC word: %w", err)
	}
	return nil
}

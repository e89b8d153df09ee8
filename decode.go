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
	"errors"
	"fmt"
	"time"
)

// Tag frame flag bits
const (
	tagFlagRSSI byte = 0x01
	tagFlagTID  byte = 0x02
)

// Settings flag bits
const (
	settingOnlyNewTags byte = 0x01
	settingWithRSSI    byte = 0x02
	settingWithTID     byte = 0x04
)

var errShortPayload = errors.New("payload truncated")

// payloadReader walks a response payload and records the first overrun
type payloadReader struct {
	data []byte
	pos  int
}

func (r *payloadReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *payloadReader) readByte(field string) (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: missing %s at offset %d", errShortPayload, field, r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *payloadReader) readBytes(n int, field string) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: %s declares %d bytes, %d remain", errShortPayload, field, n, r.remaining())
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// prefixed reads a one-byte length followed by that many bytes
func (r *payloadReader) prefixed(field string) ([]byte, error) {
	n, err := r.readByte(field + " length")
	if err != nil {
		return nil, err
	}
	return r.readBytes(int(n), field)
}

func (r *payloadReader) done() error {
	if r.remaining() != 0 {
		return fmt.Errorf("%d unexpected trailing bytes", r.remaining())
	}
	return nil
}

func malformed(err error) *ReaderError {
	return &ReaderError{Kind: KindMalformedPayload, Err: err}
}

// decodeTag decodes one inventory tag notification:
// [flags][epcLen][epc][rssi]?[tidLen][tid]?
func decodeTag(payload []byte, antenna int, seen time.Time) (UhfTag, error) {
	r := payloadReader{data: payload}

	flags, err := r.readByte("flags")
	if err != nil {
		return UhfTag{}, malformed(err)
	}
	epc, err := r.prefixed("EPC")
	if err != nil {
		return UhfTag{}, malformed(err)
	}

	tag := UhfTag{EPC: epc, Antenna: antenna, Timestamp: seen}

	if flags&tagFlagRSSI != 0 {
		raw, err := r.readByte("RSSI")
		if err != nil {
			return UhfTag{}, malformed(err)
		}
		rssi := int8(raw)
		tag.RSSI = &rssi
	}
	if flags&tagFlagTID != 0 {
		tid, err := r.prefixed("TID")
		if err != nil {
			return UhfTag{}, malformed(err)
		}
		tag.TID = tid
	}
	if err := r.done(); err != nil {
		return UhfTag{}, malformed(err)
	}
	return tag, nil
}

// inventoryEnd is the terminal frame of an inventory round
type inventoryEnd struct {
	count   uint16
	antenna int
	status  Status
}

func decodeInventoryEnd(payload []byte) (inventoryEnd, error) {
	if len(payload) != 4 {
		return inventoryEnd{}, malformed(fmt.Errorf("inventory end frame has %d bytes, want 4", len(payload)))
	}
	return inventoryEnd{
		status:  Status(payload[0]),
		count:   uint16(payload[1])<<8 | uint16(payload[2]),
		antenna: int(payload[3]),
	}, nil
}

// decodeStatus splits a status-bearing response into status and data.
// A failure status is returned as a device error.
func decodeStatus(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, malformed(errors.New("empty response, missing status byte"))
	}
	status := Status(payload[0])
	if !status.OK() {
		return nil, &ReaderError{Kind: KindDevice, Status: status, HasStatus: true}
	}
	data := make([]byte, len(payload)-1)
	copy(data, payload[1:])
	return data, nil
}

// decodeWriteAck checks a write acknowledgement [status][wordsWritten]
// against the number of words sent.
func decodeWriteAck(payload []byte, words int) error {
	data, err := decodeStatus(payload)
	if err != nil {
		return err
	}
	if len(data) != 1 {
		return malformed(fmt.Errorf("write acknowledgement has %d data bytes, want 1", len(data)))
	}
	if int(data[0]) != words {
		debugf("write incomplete: %d of %d words", data[0], words)
		return &ReaderError{
			Kind:      KindDevice,
			Status:    StatusIncompleteWrite,
			HasStatus: true,
			Err:       fmt.Errorf("reader wrote %d of %d words", data[0], words),
		}
	}
	return nil
}

// decodeAck checks a bare [status] acknowledgement
func decodeAck(payload []byte) error {
	data, err := decodeStatus(payload)
	if err != nil {
		return err
	}
	if len(data) != 0 {
		return malformed(fmt.Errorf("acknowledgement has %d unexpected bytes", len(data)))
	}
	return nil
}

func decodeReaderInfo(payload []byte) (*ReaderInfo, error) {
	data, err := decodeStatus(payload)
	if err != nil {
		return nil, err
	}
	r := payloadReader{data: data}
	fields := make([]string, 5)
	names := []string{"firmware", "firmware version", "hardware", "hardware version", "serial number"}
	for i, name := range names {
		raw, err := r.prefixed(name)
		if err != nil {
			return nil, malformed(err)
		}
		fields[i] = string(raw)
	}
	if err := r.done(); err != nil {
		return nil, malformed(err)
	}
	return &ReaderInfo{
		Firmware:        fields[0],
		FirmwareVersion: fields[1],
		Hardware:        fields[2],
		HardwareVersion: fields[3],
		SerialNumber:    fields[4],
	}, nil
}

func decodeSettings(payload []byte) (*Settings, error) {
	data, err := decodeStatus(payload)
	if err != nil {
		return nil, err
	}
	if len(data) != 6 {
		return nil, malformed(fmt.Errorf("settings response has %d data bytes, want 6", len(data)))
	}
	return &Settings{
		Power:  int(data[0]),
		Region: Region(data[1]),
		Q: QSettings{
			Start: int(data[2]),
			Min:   int(data[3]),
			Max:   int(data[4]),
		},
		Inventory: InventorySettings{
			OnlyNewTags: data[5]&settingOnlyNewTags != 0,
			WithRSSI:    data[5]&settingWithRSSI != 0,
			WithTID:     data[5]&settingWithTID != 0,
		},
	}, nil
}

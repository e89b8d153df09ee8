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

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/polling"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type tagRecord struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	RSSI      *int8     `json:"rssi,omitempty" yaml:"rssi,omitempty"`
	EPC       string    `json:"epc" yaml:"epc"`
	TID       string    `json:"tid,omitempty" yaml:"tid,omitempty"`
	Antenna   int       `json:"antenna,omitempty" yaml:"antenna,omitempty"`
}

func newTagRecord(tag *uhf.UhfTag) tagRecord {
	return tagRecord{
		Timestamp: tag.Timestamp,
		RSSI:      tag.RSSI,
		EPC:       tag.ID(),
		TID:       tag.TIDString(),
		Antenna:   tag.Antenna,
	}
}

type memoryRecord struct {
	Bank  string `json:"bank" yaml:"bank"`
	Data  string `json:"data" yaml:"data"`
	Start uint16 `json:"start" yaml:"start"`
	Words int    `json:"words" yaml:"words"`
}

type settingsRecord struct {
	Region      string `json:"region" yaml:"region"`
	Power       int    `json:"power" yaml:"power"`
	QStart      int    `json:"q_start" yaml:"q_start"`
	QMin        int    `json:"q_min" yaml:"q_min"`
	QMax        int    `json:"q_max" yaml:"q_max"`
	TagSize     int    `json:"tag_size" yaml:"tag_size"`
	OnlyNewTags bool   `json:"only_new_tags" yaml:"only_new_tags"`
	WithRSSI    bool   `json:"with_rssi" yaml:"with_rssi"`
	WithTID     bool   `json:"with_tid" yaml:"with_tid"`
}

func newSettingsRecord(s *uhf.Settings) settingsRecord {
	return settingsRecord{
		Region:      s.Region.String(),
		Power:       s.Power,
		QStart:      s.Q.Start,
		QMin:        s.Q.Min,
		QMax:        s.Q.Max,
		TagSize:     s.Q.TagSize(),
		OnlyNewTags: s.Inventory.OnlyNewTags,
		WithRSSI:    s.Inventory.WithRSSI,
		WithTID:     s.Inventory.WithTID,
	}
}

// printer renders command results in the configured format
type printer struct {
	w      io.Writer
	format string
}

func (p *printer) structured(v any) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", p.format)
	}
}

func (p *printer) tags(tags []uhf.UhfTag) error {
	if p.format != formatText {
		records := make([]tagRecord, 0, len(tags))
		for i := range tags {
			records = append(records, newTagRecord(&tags[i]))
		}
		return p.structured(records)
	}
	if len(tags) == 0 {
		_, _ = fmt.Fprintln(p.w, "no tags")
		return nil
	}
	for i := range tags {
		_, _ = fmt.Fprintln(p.w, tags[i].String())
	}
	return nil
}

func (p *printer) memory(bank uhf.MemoryBank, start uint16, data []byte) error {
	rec := memoryRecord{
		Bank:  bank.String(),
		Start: start,
		Words: len(data) / 2,
		Data:  strings.ToUpper(hex.EncodeToString(data)),
	}
	if p.format != formatText {
		return p.structured(rec)
	}
	_, _ = fmt.Fprintf(p.w, "%s@%d: %s\n", rec.Bank, rec.Start, rec.Data)
	return nil
}

func (p *printer) info(info *uhf.ReaderInfo) error {
	if p.format != formatText {
		return p.structured(map[string]string{
			"hardware":         info.Hardware,
			"hardware_version": info.HardwareVersion,
			"firmware":         info.Firmware,
			"firmware_version": info.FirmwareVersion,
			"serial_number":    info.SerialNumber,
		})
	}
	_, _ = fmt.Fprintln(p.w, info.String())
	return nil
}

func (p *printer) settings(s *uhf.Settings) error {
	rec := newSettingsRecord(s)
	if p.format != formatText {
		return p.structured(rec)
	}
	_, _ = fmt.Fprintf(p.w, "power %d, region %s, Q %d (%d..%d, ~%d tags), rssi %t, tid %t, only new %t\n",
		rec.Power, rec.Region, rec.QStart, rec.QMin, rec.QMax, rec.TagSize, rec.WithRSSI, rec.WithTID, rec.OnlyNewTags)
	return nil
}

func (p *printer) report(r *polling.Report) error {
	if p.format != formatText {
		return p.structured(r)
	}
	_, _ = fmt.Fprintf(p.w, "report %s: %d rounds, %d tags, %d errors\n", r.ID, r.Rounds, r.Len(), r.Errors)
	for _, e := range r.Entries {
		rssi := "-"
		if e.RSSI != nil {
			rssi = fmt.Sprintf("%d", *e.RSSI)
		}
		_, _ = fmt.Fprintf(p.w, "%s seen %d rssi %s\n", e.EPC, e.SeenCount, rssi)
	}
	return nil
}

func (p *printer) message(format string, args ...any) {
	if p.format == formatText {
		_, _ = fmt.Fprintf(p.w, format+"\n", args...)
	}
}

// event prints one monitor event; structured formats emit one object per line
func (p *printer) event(kind string, tag *uhf.UhfTag) {
	if p.format == formatText {
		_, _ = fmt.Fprintf(p.w, "%s %s\n", kind, tag.String())
		return
	}
	_ = p.structured(struct {
		Event string    `json:"event" yaml:"event"`
		Tag   tagRecord `json:"tag" yaml:"tag"`
	}{Event: kind, Tag: newTagRecord(tag)})
}

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
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/detection"
	"github.com/ZaparooProject/go-uhf/metrics"
	"github.com/ZaparooProject/go-uhf/polling"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parseHex(name, s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if err != nil {
		return nil, fmt.Errorf("-%s is not hex: %w", name, err)
	}
	return raw, nil
}

func parsePassword(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("password %q must be 8 hex digits: %w", s, err)
	}
	return uint32(v), nil
}

// selectorFlag registers -epc and returns a func resolving it
func selectorFlag(fs *flag.FlagSet) func() (uhf.TagSelector, error) {
	epc := fs.String("epc", "", "EPC (hex prefix) of the target tag. Empty acts on the only tag in the field.")
	return func() (uhf.TagSelector, error) {
		if *epc == "" {
			return uhf.TagSelector{}, nil
		}
		return uhf.SelectHex(*epc)
	}
}

func runDetect(ctx context.Context, a *app, _ []string) error {
	opts, err := a.detectOptions()
	if err != nil {
		return err
	}
	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	if a.out.format != formatText {
		return a.out.structured(devices)
	}
	if len(devices) == 0 {
		a.out.message("no readers found")
		return nil
	}
	for _, d := range devices {
		a.out.message("%s", d)
	}
	return nil
}

func runInfo(ctx context.Context, a *app, _ []string) error {
	return a.withReader(ctx, func(reader *uhf.Reader) error {
		info, err := reader.GetReaderInfoContext(ctx)
		if err != nil {
			return err
		}
		return a.out.info(info)
	})
}

func runSettings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("settings")
	power := fs.Int("power", -1, "Antenna power level (0-9)")
	region := fs.String("region", "", "Frequency region: ETSI, FCC or ETSI_HIGH")
	tagSize := fs.Int("tag-size", 0, "Expected tag population for anticollision")
	rssi := fs.String("rssi", "", "Report RSSI in inventory: on or off")
	tid := fs.String("tid", "", "Report TID in inventory: on or off")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		if *power >= 0 {
			if err := reader.SetPowerContext(ctx, *power); err != nil {
				return err
			}
		}
		if *region != "" {
			r, err := uhf.ParseRegion(*region)
			if err != nil {
				return err
			}
			if err := reader.SetRegionContext(ctx, r); err != nil {
				return err
			}
		}
		if *tagSize > 0 {
			if err := reader.SetTagSizeContext(ctx, *tagSize, 0, 0); err != nil {
				return err
			}
		}
		if *rssi != "" || *tid != "" {
			inv, err := reader.GetInventorySettingsContext(ctx)
			if err != nil {
				return err
			}
			if inv.WithRSSI, err = toggle(*rssi, inv.WithRSSI); err != nil {
				return err
			}
			if inv.WithTID, err = toggle(*tid, inv.WithTID); err != nil {
				return err
			}
			if err := reader.SetInventorySettingsContext(ctx, inv); err != nil {
				return err
			}
		}

		settings, err := reader.GetSettingsContext(ctx)
		if err != nil {
			return err
		}
		return a.out.settings(settings)
	})
}

func toggle(s string, current bool) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return current, nil
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func inventoryFlags(fs *flag.FlagSet) func() ([]uhf.InventoryOption, error) {
	antenna := fs.Int("antenna", 0, "Antenna to use (0 for the reader default)")
	mask := fs.String("mask", "", "Only report tags whose bank content matches this hex mask")
	bank := fs.String("mask-bank", "EPC", "Bank the mask is compared against")
	start := fs.Uint("mask-start", 4, "Byte offset of the mask within the bank")
	return func() ([]uhf.InventoryOption, error) {
		var opts []uhf.InventoryOption
		if *antenna > 0 {
			opts = append(opts, uhf.WithAntenna(*antenna))
		}
		if *mask != "" {
			raw, err := parseHex("mask", *mask)
			if err != nil {
				return nil, err
			}
			b, err := uhf.ParseMemoryBank(*bank)
			if err != nil {
				return nil, err
			}
			if *start > 0xFF {
				return nil, fmt.Errorf("-mask-start %d out of range", *start)
			}
			opts = append(opts, uhf.WithFilter(uhf.Filter{Bank: b, Start: uint8(*start), Mask: raw}))
		}
		return opts, nil
	}
}

func runInventory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("inventory")
	duration := fs.Duration("duration", 0, "Aggregate rounds for this long into a report")
	invOpts := inventoryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := invOpts()
	if err != nil {
		return err
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		if *duration > 0 {
			report, err := polling.CollectReport(ctx, reader, *duration, opts...)
			if err != nil {
				return err
			}
			return a.out.report(report)
		}

		tags, err := reader.GetInventoryContext(ctx, opts...)
		if err != nil && uhf.KindOf(err) != uhf.KindMalformedPayload {
			return err
		}
		if err != nil {
			a.log.Warn("inventory incomplete", zap.Error(err))
		}
		return a.out.tags(tags)
	})
}

func runMonitor(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("monitor")
	invOpts := inventoryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := invOpts()
	if err != nil {
		return err
	}

	if a.cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		a.metrics = metrics.NewReaderMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, metrics.Handler(reg))
		server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() { _ = server.Close() }()
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		config := polling.DefaultConfig()
		config.InventoryOptions = opts
		config.PollInterval = a.cfg.Poll.Interval
		config.TagRemovalTimeout = a.cfg.Poll.RemovalTimeout
		if config.IdlePollInterval < config.PollInterval {
			config.IdlePollInterval = config.PollInterval
		}

		monitor, err := polling.NewMonitor(reader, config)
		if err != nil {
			return err
		}
		monitor.OnTagArrived = func(tag uhf.UhfTag) error {
			if a.metrics != nil {
				a.metrics.TagArrived()
			}
			a.out.event("arrived", &tag)
			return nil
		}
		monitor.OnTagDeparted = func(state polling.TagState) {
			if a.metrics != nil {
				a.metrics.TagDeparted()
			}
			a.out.event("departed", &state.Tag)
		}
		monitor.OnError = func(err error) {
			a.log.Warn("inventory round failed", zap.Error(err))
		}

		err = monitor.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return a.out.report(monitor.Report())
		}
		return err
	})
}

func runRead(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("read")
	sel := selectorFlag(fs)
	bank := fs.String("bank", "USR", "Memory bank: RES, EPC, TID or USR")
	start := fs.Uint("start", 0, "Start word address")
	words := fs.Uint("words", 2, "Number of 16-bit words")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	b, err := uhf.ParseMemoryBank(*bank)
	if err != nil {
		return err
	}
	if *start > 0xFFFF || *words == 0 || *words > 0xFF {
		return fmt.Errorf("start %d or words %d out of range", *start, *words)
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		data, err := reader.ReadContext(ctx, selector, b, uint16(*start), uint8(*words))
		if err != nil {
			return err
		}
		return a.out.memory(b, uint16(*start), data)
	})
}

func runWrite(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("write")
	sel := selectorFlag(fs)
	bank := fs.String("bank", "USR", "Memory bank: RES, EPC or USR")
	start := fs.Uint("start", 0, "Start word address")
	hexData := fs.String("data", "", "Data to write, hex, whole words")
	verify := fs.Bool("verify", false, "Read back and compare after writing")
	wait := fs.Duration("wait", 0, "Wait this long for a tag to enter the field and write to it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	b, err := uhf.ParseMemoryBank(*bank)
	if err != nil {
		return err
	}
	data, err := parseHex("data", *hexData)
	if err != nil {
		return err
	}
	if *start > 0xFFFF {
		return fmt.Errorf("start %d out of range", *start)
	}
	addr := uint16(*start)

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		write := func(ctx context.Context, reader *uhf.Reader, sel uhf.TagSelector) error {
			if *verify {
				return uhf.NewValidatedReader(reader, nil).WriteVerified(ctx, sel, b, addr, data)
			}
			return reader.WriteContext(ctx, sel, b, addr, data)
		}

		if *wait <= 0 {
			if err := write(ctx, reader, selector); err != nil {
				return err
			}
			a.out.message("wrote %d words", len(data)/2)
			return nil
		}

		scanner, err := polling.NewScanner(reader, nil)
		if err != nil {
			return err
		}
		if err := scanner.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = scanner.Stop() }()

		a.out.message("waiting for tag...")
		return scanner.WriteToNextTag(ctx, *wait, func(ctx context.Context, reader *uhf.Reader, tag uhf.UhfTag) error {
			if err := write(ctx, reader, uhf.SelectEPC(tag.EPC)); err != nil {
				return err
			}
			a.out.message("wrote %d words to %s", len(data)/2, tag.ID())
			return nil
		})
	})
}

func runWriteEPC(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("write-epc")
	sel := selectorFlag(fs)
	newEPC := fs.String("new", "", "New EPC, hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	epc, err := parseHex("new", *newEPC)
	if err != nil {
		return err
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		if err := reader.WriteEPCContext(ctx, selector, epc); err != nil {
			return err
		}
		a.out.message("EPC set to %X", epc)
		return nil
	})
}

func runLock(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("lock")
	sel := selectorFlag(fs)
	bank := fs.String("bank", "EPC", "Memory bank to lock")
	action := fs.String("action", "lock", "lock, unlock or permanent")
	password := fs.String("password", "00000000", "Access password, hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	b, err := uhf.ParseMemoryBank(*bank)
	if err != nil {
		return err
	}
	pwd, err := parsePassword(*password)
	if err != nil {
		return err
	}

	var op func(context.Context, uhf.TagSelector, uhf.MemoryBank, uint32) error
	return a.withReader(ctx, func(reader *uhf.Reader) error {
		switch *action {
		case "lock":
			op = reader.LockContext
		case "unlock":
			op = reader.UnlockContext
		case "permanent":
			op = reader.LockPermanentContext
		default:
			return fmt.Errorf("unknown lock action %q", *action)
		}
		if err := op(ctx, selector, b, pwd); err != nil {
			return err
		}
		a.out.message("%s %s done", *action, b)
		return nil
	})
}

func runKill(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("kill")
	sel := selectorFlag(fs)
	password := fs.String("password", "", "Kill password, hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	pwd, err := parsePassword(*password)
	if err != nil {
		return err
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		if err := reader.KillContext(ctx, selector, pwd); err != nil {
			return err
		}
		a.out.message("tag killed")
		return nil
	})
}

func runPasswd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("passwd")
	sel := selectorFlag(fs)
	which := fs.String("which", "access", "Password to change: access or kill")
	current := fs.String("current", "00000000", "Current access password, hex")
	next := fs.String("new", "", "New password, hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selector, err := sel()
	if err != nil {
		return err
	}
	cur, err := parsePassword(*current)
	if err != nil {
		return err
	}
	nxt, err := parsePassword(*next)
	if err != nil {
		return err
	}

	return a.withReader(ctx, func(reader *uhf.Reader) error {
		switch *which {
		case "access":
			err = reader.SetAccessPasswordContext(ctx, selector, cur, nxt)
		case "kill":
			err = reader.SetKillPasswordContext(ctx, selector, cur, nxt)
		default:
			return fmt.Errorf("unknown password %q", *which)
		}
		if err != nil {
			return err
		}
		a.out.message("%s password changed", *which)
		return nil
	})
}

func runReset(ctx context.Context, a *app, _ []string) error {
	if a.cfg.Power.Pin == "" {
		return errors.New("reset needs power.pin in the config")
	}
	readerOpts, err := a.readerOptions()
	if err != nil {
		return err
	}
	if a.cfg.Serial.Port == "" {
		return errors.New("reset needs an explicit port")
	}
	transport, err := a.newTransport(a.cfg.Serial.Port)
	if err != nil {
		return err
	}
	reader, err := uhf.New(transport, readerOpts...)
	if err != nil {
		_ = transport.Close()
		return err
	}
	defer func() { _ = reader.Close() }()

	if err := reader.Reset(ctx); err != nil {
		return err
	}
	if err := reader.InitContext(ctx); err != nil {
		return fmt.Errorf("reader did not come back after reset: %w", err)
	}
	a.out.message("reader reset")
	return nil
}

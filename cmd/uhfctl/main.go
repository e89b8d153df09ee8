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

// Command uhfctl talks to a UHF RFID reader over a serial port
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/detection"
	_ "github.com/ZaparooProject/go-uhf/detection/uart"
	"github.com/ZaparooProject/go-uhf/hwctl"
	"github.com/ZaparooProject/go-uhf/metrics"
	"github.com/ZaparooProject/go-uhf/transport/uart"
)

const usage = `usage: uhfctl [flags] <command> [command flags]

commands:
  detect      list candidate reader ports
  info        show reader info
  settings    show or change reader settings
  inventory   run inventory rounds
  monitor     report tags entering and leaving the field
  read        read tag memory
  write       write tag memory
  write-epc   replace a tag's EPC
  lock        lock, unlock or permanently lock a bank
  kill        permanently disable a tag
  passwd      change a tag's access or kill password
  reset       power-cycle the reader

flags:
`

// app carries everything a command needs
type app struct {
	cfg     *Config
	log     *zap.Logger
	out     *printer
	metrics *metrics.ReaderMetrics
}

type commandFunc func(ctx context.Context, a *app, args []string) error

var commands = map[string]commandFunc{
	"detect":    runDetect,
	"info":      runInfo,
	"settings":  runSettings,
	"inventory": runInventory,
	"monitor":   runMonitor,
	"read":      runRead,
	"write":     runWrite,
	"write-epc": runWriteEPC,
	"lock":      runLock,
	"kill":      runKill,
	"passwd":    runPasswd,
	"reset":     runReset,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "uhfctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("uhfctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "Config file (default ./uhfctl.yaml)")
	port := fs.String("port", "", "Serial port path. Leave empty for auto-detection.")
	output := fs.String("o", "", "Output format: text, json or yaml")
	debug := fs.Bool("debug", false, "Enable protocol debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *output != "" {
		cfg.Output = *output
		if err := cfg.validate(); err != nil {
			return err
		}
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	log := initLogger(cfg.Logging)
	defer func() { _ = log.Sync() }()

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	a := &app{cfg: cfg, log: log, out: &printer{w: stdout, format: cfg.Output}}
	return cmd(ctx, a, fs.Args()[1:])
}

func (a *app) detectOptions() (detection.Options, error) {
	opts := detection.DefaultOptions()
	mode, err := detection.ParseMode(strings.ToLower(a.cfg.Serial.Detect))
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	return opts, nil
}

func (a *app) newTransport(path string) (uhf.Transport, error) {
	transport, err := uart.New(path, uart.WithBaudRate(a.cfg.Serial.Baud))
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return transport, nil
}

func (a *app) newTransportFromDevice(device detection.DeviceInfo) (uhf.Transport, error) {
	if !strings.EqualFold(device.Transport, "uart") {
		return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
	}
	return a.newTransport(device.Path)
}

func (a *app) readerOptions() ([]uhf.Option, error) {
	opts := []uhf.Option{
		uhf.WithTimeout(a.cfg.Reader.Timeout),
		uhf.WithMaxRetries(a.cfg.Reader.Retries),
		uhf.WithLogger(a.log.Named("reader")),
	}
	if a.metrics != nil {
		opts = append(opts, uhf.WithObserver(a.metrics))
	}
	if a.cfg.Power.Pin != "" {
		var pinOpts []hwctl.Option
		if a.cfg.Power.ActiveLow {
			pinOpts = append(pinOpts, hwctl.WithActiveLow())
		}
		power, err := hwctl.Open(a.cfg.Power.Pin, pinOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open power pin: %w", err)
		}
		opts = append(opts, uhf.WithPowerControl(power))
	}
	return opts, nil
}

// connect opens the configured port, or the first detected one
func (a *app) connect(ctx context.Context) (*uhf.Reader, error) {
	readerOpts, err := a.readerOptions()
	if err != nil {
		return nil, err
	}

	connectOpts := []uhf.ConnectOption{
		uhf.WithReaderOptions(readerOpts...),
		uhf.WithConnectTimeout(a.cfg.Reader.Timeout * 4),
	}
	if a.cfg.Serial.Port == "" {
		detectOpts, err := a.detectOptions()
		if err != nil {
			return nil, err
		}
		connectOpts = append(connectOpts,
			uhf.WithAutoDetection(),
			uhf.WithDetectionOptions(detectOpts),
			uhf.WithTransportFromDeviceFactory(a.newTransportFromDevice))
		a.log.Info("auto-detecting reader")
	} else {
		connectOpts = append(connectOpts, uhf.WithTransportFactory(a.newTransport))
		a.log.Info("opening reader", zap.String("port", a.cfg.Serial.Port))
	}

	reader, err := uhf.ConnectReader(ctx, a.cfg.Serial.Port, connectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to reader: %w", err)
	}
	if info := reader.Info(); info != nil {
		a.log.Info("connected", zap.Stringer("reader", info))
	}
	return reader, nil
}

// withReader connects, runs fn and closes the reader
func (a *app) withReader(ctx context.Context, fn func(*uhf.Reader) error) error {
	reader, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()
	return fn(reader)
}

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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig selects the reader port
type SerialConfig struct {
	Port   string `mapstructure:"port"`
	Detect string `mapstructure:"detect"`
	Baud   int    `mapstructure:"baud"`
}

// ReaderConfig holds exchange settings
type ReaderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// LumberjackConfig configures log file rotation
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig holds the log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig controls the Prometheus endpoint served by monitor
type MetricsConfig struct {
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
	Enable bool   `mapstructure:"enable"`
}

// PowerConfig names the reader enable pin
type PowerConfig struct {
	Pin       string `mapstructure:"pin"`
	ActiveLow bool   `mapstructure:"activeLow"`
}

// PollConfig holds continuous inventory settings
type PollConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	RemovalTimeout time.Duration `mapstructure:"removalTimeout"`
}

// Config is the top-level CLI configuration
type Config struct {
	Output  string        `mapstructure:"output"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Power   PowerConfig   `mapstructure:"power"`
	Reader  ReaderConfig  `mapstructure:"reader"`
	Poll    PollConfig    `mapstructure:"poll"`
}

// loadConfig reads path (or uhfctl.yaml from the working directory or
// ~/.config/uhfctl) and applies UHF_ environment overrides.
func loadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/uhfctl")
		v.SetConfigName("uhfctl")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("UHF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "text")
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.detect", "safe")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("reader.timeout", "500ms")
	v.SetDefault("reader.retries", 1)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", false)
	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", ":9464")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("power.pin", "")
	v.SetDefault("power.activeLow", false)
	v.SetDefault("poll.interval", "100ms")
	v.SetDefault("poll.removalTimeout", "1s")
}

func (c *Config) validate() error {
	switch c.Output {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Reader.Timeout <= 0 {
		return fmt.Errorf("reader timeout must be positive, got %v", c.Reader.Timeout)
	}
	if c.Reader.Retries < 0 {
		return fmt.Errorf("reader retries must not be negative, got %d", c.Reader.Retries)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	return nil
}

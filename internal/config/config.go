// go-jukebox
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-jukebox.
//
// go-jukebox is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-jukebox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-jukebox; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads the jukebox daemon configuration from YAML.
//
// Loading follows three stages: Parse overlays the file on Default,
// Validate checks the result without changing it, and Normalize fills
// derived values. Load runs all three.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MusicRoot  string         `yaml:"music_root"`
	StartSound string         `yaml:"start_sound"`
	Log        LogConfig      `yaml:"log"`
	Reader     ReaderConfig   `yaml:"reader"`
	Polling    PollingConfig  `yaml:"polling"`
	Power      PowerConfig    `yaml:"power"`
	Playback   PlaybackConfig `yaml:"playback"`
	Server     ServerConfig   `yaml:"server"`
	Registry   RegistryConfig `yaml:"registry"`
	History    HistoryConfig  `yaml:"history"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ---- READER ----

type ReaderConfig struct {
	// Transport is auto, uart, i2c or spi.
	Transport string `yaml:"transport"`
	// Device is the serial port, I2C bus or SPI port name. Empty with
	// transport auto means detect.
	Device string `yaml:"device"`
	// CallTimeout bounds each reader call made by the engine.
	CallTimeout time.Duration `yaml:"call_timeout"`
	// CommandTimeout is the PN532 command timeout.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	Retries        int           `yaml:"retries"`
	Page           uint8         `yaml:"page"`
}

// ---- POLLING ----

type PollingConfig struct {
	Interval        time.Duration `yaml:"interval"`
	StopThreshold   uint32        `yaml:"stop_threshold"`
	ReplayThreshold uint32        `yaml:"replay_threshold"`
}

// ---- POWER ----

type PowerConfig struct {
	// NetworkOffDelay of zero keeps the network on.
	NetworkOffDelay time.Duration `yaml:"network_off_delay"`
	Command         []string      `yaml:"command"`
}

// ---- PLAYBACK ----

type PlaybackConfig struct {
	Backend       string        `yaml:"backend"` // mpd | command
	DefaultVolume int           `yaml:"default_volume"`
	MPD           MPDConfig     `yaml:"mpd"`
	Command       CommandConfig `yaml:"command"`
}

type MPDConfig struct {
	Network  string `yaml:"network"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	// MusicDir is MPD's music_directory; empty means music_root.
	MusicDir string `yaml:"music_dir"`
}

type CommandConfig struct {
	Play   []string `yaml:"play"`
	Volume []string `yaml:"volume"`
}

// ---- SERVER ----

type ServerConfig struct {
	Listen         string        `yaml:"listen"`
	StatusInterval time.Duration `yaml:"status_interval"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// ---- REGISTRY ----

type RegistryConfig struct {
	// Prune replaces the registry on every scan instead of merging.
	Prune          bool          `yaml:"prune"`
	RescanInterval time.Duration `yaml:"rescan_interval"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	// Path of the SQLite database; empty disables history.
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MusicRoot:  "/home/pi/Music",
		StartSound: "start.mp3",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Reader: ReaderConfig{
			Transport:      "auto",
			CallTimeout:    2 * time.Second,
			CommandTimeout: time.Second,
			Retries:        2,
			Page:           10,
		},
		Polling: PollingConfig{
			Interval:        500 * time.Millisecond,
			StopThreshold:   3,
			ReplayThreshold: 3,
		},
		Power: PowerConfig{
			NetworkOffDelay: 180 * time.Second,
			Command:         []string{"sudo", "ifdown", "wlan0"},
		},
		Playback: PlaybackConfig{
			Backend:       "mpd",
			DefaultVolume: 70,
			MPD: MPDConfig{
				Network: "tcp",
				Address: "localhost:6600",
			},
			Command: CommandConfig{
				Play:   []string{"mpg123", "-q"},
				Volume: []string{"amixer", "-q", "sset", "PCM", "{volume}%"},
			},
		},
		Server: ServerConfig{
			Listen:         "0.0.0.0:5000",
			StatusInterval: time.Second,
			MaxUploadBytes: 64 << 20,
		},
		History: HistoryConfig{
			Limit: 50,
		},
	}
}

// Parse overlays data on Default. Keys absent from data keep their default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads, validates and normalizes the file at path. An empty path
// starts from the defaults. Overrides run after parsing and before
// validation, so command line flags are checked like file values.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}

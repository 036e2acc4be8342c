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

package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	firstUserPage = 4
	// NTAG213 user memory ends at page 39 and a payload spans four pages.
	lastPayloadPage = 36
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(cfg.MusicRoot) == "" {
		fail("music_root must be set")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		fail("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		fail("log.format %q is not one of text, json", cfg.Log.Format)
	}

	// ---- reader ----

	switch cfg.Reader.Transport {
	case "auto", "uart", "i2c", "spi":
	default:
		fail("reader.transport %q is not one of auto, uart, i2c, spi", cfg.Reader.Transport)
	}
	if cfg.Reader.Transport != "auto" && cfg.Reader.Transport != "i2c" && cfg.Reader.Device == "" {
		fail("reader.device is required for transport %q", cfg.Reader.Transport)
	}
	if cfg.Reader.CallTimeout < 0 || cfg.Reader.CommandTimeout < 0 {
		fail("reader timeouts must not be negative")
	}
	if cfg.Reader.Retries < 0 {
		fail("reader.retries must not be negative")
	}
	if cfg.Reader.Page < firstUserPage || cfg.Reader.Page > lastPayloadPage {
		fail("reader.page %d outside %d..%d", cfg.Reader.Page, firstUserPage, lastPayloadPage)
	}

	// ---- polling ----

	if cfg.Polling.Interval <= 0 {
		fail("polling.interval must be positive")
	}
	if cfg.Polling.StopThreshold == 0 {
		fail("polling.stop_threshold must be at least 1")
	}
	if cfg.Polling.ReplayThreshold == 0 {
		fail("polling.replay_threshold must be at least 1")
	}

	// ---- power ----

	if cfg.Power.NetworkOffDelay < 0 {
		fail("power.network_off_delay must not be negative")
	}
	if cfg.Power.NetworkOffDelay > 0 && len(cfg.Power.Command) == 0 {
		fail("power.command is required when network_off_delay is set")
	}

	// ---- playback ----

	switch cfg.Playback.Backend {
	case "mpd":
		if cfg.Playback.MPD.Address == "" {
			fail("playback.mpd.address must be set")
		}
	case "command":
		if len(cfg.Playback.Command.Play) == 0 {
			fail("playback.command.play must be set")
		}
	default:
		fail("playback.backend %q is not one of mpd, command", cfg.Playback.Backend)
	}
	if cfg.Playback.DefaultVolume < 0 || cfg.Playback.DefaultVolume > 100 {
		fail("playback.default_volume %d outside 0..100", cfg.Playback.DefaultVolume)
	}

	// ---- server ----

	if cfg.Server.Listen == "" {
		fail("server.listen must be set")
	}
	if cfg.Server.StatusInterval < 0 {
		fail("server.status_interval must not be negative")
	}
	if cfg.Server.MaxUploadBytes < 0 {
		fail("server.max_upload_bytes must not be negative")
	}

	// ---- registry / history ----

	if cfg.Registry.RescanInterval < 0 {
		fail("registry.rescan_interval must not be negative")
	}
	if cfg.History.Limit < 0 {
		fail("history.limit must not be negative")
	}

	return errors.Join(errs...)
}

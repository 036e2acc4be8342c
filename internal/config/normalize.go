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
	"path/filepath"
	"time"
)

// Normalize fills derived values. It may mutate cfg and must run after
// Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.MusicRoot = filepath.Clean(cfg.MusicRoot)

	// A relative start sound lives in the music root.
	if cfg.StartSound != "" && !filepath.IsAbs(cfg.StartSound) {
		cfg.StartSound = filepath.Join(cfg.MusicRoot, cfg.StartSound)
	}

	if cfg.Playback.MPD.MusicDir == "" {
		cfg.Playback.MPD.MusicDir = cfg.MusicRoot
	}
	if cfg.Playback.MPD.Network == "" {
		cfg.Playback.MPD.Network = "tcp"
	}

	if cfg.Server.StatusInterval == 0 {
		cfg.Server.StatusInterval = time.Second
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = 50
	}
}

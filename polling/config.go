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

package polling

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaparooProject/go-jukebox"
)

const (
	// DefaultPollInterval is the pause between two poll cycles.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultStopThreshold is the number of empty cycles before playback
	// stops.
	DefaultStopThreshold uint32 = 3
	// DefaultReplayThreshold is the number of empty cycles after which the
	// previous file may start again.
	DefaultReplayThreshold uint32 = 3
)

// Config holds the engine settings.
type Config struct {
	// Media is used to check that a registered file still exists. Nil uses
	// os.DirFS(MusicRoot).
	Media  fs.FS
	Logger *slog.Logger
	// MusicRoot is joined with registered names to build player paths.
	MusicRoot       string
	PollInterval    time.Duration
	StopThreshold   uint32
	ReplayThreshold uint32
	// Page is the first tag page of the payload.
	Page uint8
}

// DefaultConfig returns a configuration with the default cadence and
// thresholds.
func DefaultConfig() *Config {
	return &Config{
		Page:            jukebox.DefaultPage,
		PollInterval:    DefaultPollInterval,
		StopThreshold:   DefaultStopThreshold,
		ReplayThreshold: DefaultReplayThreshold,
	}
}

// withDefaults returns a copy with zero fields filled in.
func (c *Config) withDefaults() Config {
	out := *DefaultConfig()
	if c == nil {
		out.Logger = slog.Default()
		return out
	}
	out.Media = c.Media
	out.Logger = c.Logger
	out.MusicRoot = c.MusicRoot
	if c.Page != 0 {
		out.Page = c.Page
	}
	if c.PollInterval > 0 {
		out.PollInterval = c.PollInterval
	}
	if c.StopThreshold > 0 {
		out.StopThreshold = c.StopThreshold
	}
	if c.ReplayThreshold > 0 {
		out.ReplayThreshold = c.ReplayThreshold
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Media == nil && out.MusicRoot != "" {
		out.Media = os.DirFS(out.MusicRoot)
	}
	return out
}

func (c *Config) path(name string) string {
	return filepath.Join(c.MusicRoot, name)
}

func (c *Config) exists(name string) bool {
	if c.Media == nil {
		return false
	}
	info, err := fs.Stat(c.Media, name)
	return err == nil && !info.IsDir()
}

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

// Package mpd plays tracks through a Music Player Daemon.
package mpd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-jukebox/playback"
	"github.com/fhs/gompd/v2/mpd"
)

var ErrOutsideMusicDir = errors.New("track is outside the MPD music directory")

// Config locates the daemon.
type Config struct {
	Logger *slog.Logger
	// Network is "tcp" or "unix".
	Network  string
	Address  string
	Password string
	// MusicDir is MPD's music_directory; track paths are sent relative
	// to it.
	MusicDir string
}

// Player drives MPD. The connection is dialled lazily and re-dialled once
// when a command fails on a stale connection.
type Player struct {
	client *mpd.Client
	logger *slog.Logger
	cfg    Config
	loaded string
	mu     sync.Mutex
}

var _ playback.Player = (*Player)(nil)

func New(cfg Config) *Player {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.Address == "" {
		cfg.Address = "localhost:6600"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{cfg: cfg, logger: logger}
}

func (p *Player) dial() (*mpd.Client, error) {
	c, err := mpd.Dial(p.cfg.Network, p.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dial mpd %s %s: %w", p.cfg.Network, p.cfg.Address, err)
	}
	if p.cfg.Password != "" {
		if err := c.Command("password %s", p.cfg.Password).OK(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("mpd password: %w", err)
		}
	}
	return c, nil
}

// do runs fn with a live client, reconnecting once on failure.
func (p *Player) do(fn func(*mpd.Client) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if p.client == nil {
			c, err := p.dial()
			if err != nil {
				return err
			}
			p.client = c
		}
		err := fn(p.client)
		if err == nil {
			return nil
		}
		if attempt > 0 {
			return err
		}
		p.logger.Debug("mpd command failed, reconnecting", "error", err)
		_ = p.client.Close()
		p.client = nil
	}
}

func (p *Player) uri(path string) (string, error) {
	if p.cfg.MusicDir == "" {
		return path, nil
	}
	rel, err := filepath.Rel(p.cfg.MusicDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideMusicDir, path)
	}
	return filepath.ToSlash(rel), nil
}

// Load remembers the track; MPD only sees it on Play.
func (p *Player) Load(_ context.Context, path string) error {
	uri, err := p.uri(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.loaded = uri
	p.mu.Unlock()
	return nil
}

// Play replaces the queue with the loaded track and starts it.
func (p *Player) Play(context.Context) error {
	p.mu.Lock()
	uri := p.loaded
	p.mu.Unlock()
	if uri == "" {
		return playback.ErrNothingLoaded
	}
	return p.do(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(uri); err != nil {
			return err
		}
		return c.Play(-1)
	})
}

func (p *Player) Stop(context.Context) error {
	return p.do(func(c *mpd.Client) error {
		return c.Stop()
	})
}

func (p *Player) IsPlaying(context.Context) (bool, error) {
	var playing bool
	err := p.do(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		playing = st["state"] == "play"
		return nil
	})
	return playing, err
}

func (p *Player) SetVolume(_ context.Context, percent int) error {
	return p.do(func(c *mpd.Client) error {
		return c.SetVolume(playback.ClampVolume(percent))
	})
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

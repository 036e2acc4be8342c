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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ZaparooProject/go-jukebox/internal/config"
	"github.com/ZaparooProject/go-jukebox/playback"
	"github.com/ZaparooProject/go-jukebox/playback/command"
	"github.com/ZaparooProject/go-jukebox/playback/mpd"
	"github.com/ZaparooProject/go-jukebox/power"
)

const startSoundLimit = 30 * time.Second

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newPlayer(cfg *config.Config, logger *slog.Logger) (playback.Player, error) {
	switch cfg.Playback.Backend {
	case "mpd":
		return mpd.New(mpd.Config{
			Logger:   logger,
			Network:  cfg.Playback.MPD.Network,
			Address:  cfg.Playback.MPD.Address,
			Password: cfg.Playback.MPD.Password,
			MusicDir: cfg.Playback.MPD.MusicDir,
		}), nil
	case "command":
		return command.New(command.Config{
			Logger:        logger,
			PlayCommand:   cfg.Playback.Command.Play,
			VolumeCommand: cfg.Playback.Command.Volume,
		}), nil
	default:
		return nil, fmt.Errorf("unknown playback backend %q", cfg.Playback.Backend)
	}
}

func newTimer(cfg *config.Config, logger *slog.Logger) *power.Timer {
	var sw power.Switch = power.NopSwitch{}
	if cfg.Power.NetworkOffDelay > 0 {
		sw = power.NewCommandSwitch(cfg.Power.Command)
	}
	return power.NewTimer(cfg.Power.NetworkOffDelay, sw, power.WithLogger(logger))
}

// playStartSound plays path and waits for it to end, so the engine does not
// cut it off as soon as it sees an empty reader. A missing file is skipped.
func playStartSound(ctx context.Context, player playback.Player, path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no start sound", "path", path)
		return
	}
	if err := player.Load(ctx, path); err != nil {
		logger.Warn("failed to load start sound", "path", path, "error", err)
		return
	}
	if err := player.Play(ctx); err != nil {
		logger.Warn("failed to play start sound", "path", path, "error", err)
		return
	}
	waitIdle(ctx, player, startSoundLimit, 200*time.Millisecond)
}

func waitIdle(ctx context.Context, player playback.Player, limit, every time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		playing, err := player.IsPlaying(ctx)
		if err != nil || !playing {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

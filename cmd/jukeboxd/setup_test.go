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
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-jukebox/internal/config"
	testutil "github.com/ZaparooProject/go-jukebox/internal/testing"
	"github.com/ZaparooProject/go-jukebox/playback/command"
	"github.com/ZaparooProject/go-jukebox/playback/mpd"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything"))
}

func TestNewPlayer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	p, err := newPlayer(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &mpd.Player{}, p)

	cfg.Playback.Backend = "command"
	p, err = newPlayer(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &command.Player{}, p)

	cfg.Playback.Backend = "alsa"
	_, err = newPlayer(cfg, slog.Default())
	assert.Error(t, err)
}

func TestNewTimer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Power.NetworkOffDelay = 0
	timer := newTimer(cfg, slog.Default())
	assert.False(t, timer.Tick())
	assert.Zero(t, timer.Remaining())
}

func TestFlagsOverrides(t *testing.T) {
	t.Parallel()

	f := &flags{device: "/dev/ttyAMA0", transport: "uart", listen: ":8080", musicRoot: "/srv/music", verbose: true}
	cfg := config.Default()
	f.overrides()(cfg)

	assert.Equal(t, "/dev/ttyAMA0", cfg.Reader.Device)
	assert.Equal(t, "uart", cfg.Reader.Transport)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "/srv/music", cfg.MusicRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestPlayStartSound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "start.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	player := testutil.NewFakePlayer()
	go func() {
		time.Sleep(20 * time.Millisecond)
		player.Finish()
	}()
	playStartSound(context.Background(), player, path, slog.Default())
	assert.Equal(t, []string{"load " + path, "play"}, player.Events())

	quiet := testutil.NewFakePlayer()
	playStartSound(context.Background(), quiet, filepath.Join(dir, "missing.mp3"), slog.Default())
	assert.Empty(t, quiet.Events())
}

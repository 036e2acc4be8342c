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

// Package command plays tracks by running an external player process,
// one process per track.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-jukebox/playback"
)

// VolumePlaceholder in the volume command is replaced by the percentage.
const VolumePlaceholder = "{volume}"

var (
	DefaultPlayCommand   = []string{"mpg123", "-q"}
	DefaultVolumeCommand = []string{"amixer", "-q", "sset", "PCM", VolumePlaceholder + "%"}
)

var ErrNoCommand = errors.New("no player command configured")

// Config names the commands. The track path is appended to PlayCommand.
type Config struct {
	Logger        *slog.Logger
	PlayCommand   []string
	VolumeCommand []string
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Player runs PlayCommand for each Play. It is safe for concurrent use.
type Player struct {
	current *process
	logger  *slog.Logger
	cfg     Config
	path    string
	mu      sync.Mutex
}

var _ playback.Player = (*Player)(nil)

func New(cfg Config) *Player {
	if len(cfg.PlayCommand) == 0 {
		cfg.PlayCommand = DefaultPlayCommand
	}
	if len(cfg.VolumeCommand) == 0 {
		cfg.VolumeCommand = DefaultVolumeCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{cfg: cfg, logger: logger}
}

// Load stops the running track and remembers path.
func (p *Player) Load(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.path = path
	return nil
}

func (p *Player) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return playback.ErrNothingLoaded
	}
	p.stopLocked()

	args := append(append([]string(nil), p.cfg.PlayCommand[1:]...), p.path)
	//nolint:gosec // player binary comes from operator configuration
	cmd := exec.Command(p.cfg.PlayCommand[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.cfg.PlayCommand[0], err)
	}
	proc := &process{cmd: cmd, done: make(chan struct{})}
	path := p.path
	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Debug("player exited", "path", path, "error", err)
		}
		close(proc.done)
	}()
	p.current = proc
	return nil
}

func (p *Player) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.current == nil {
		return
	}
	select {
	case <-p.current.done:
	default:
		_ = p.current.cmd.Process.Kill()
		<-p.current.done
	}
	p.current = nil
}

func (p *Player) IsPlaying(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false, nil
	}
	select {
	case <-p.current.done:
		return false, nil
	default:
		return true, nil
	}
}

func (p *Player) SetVolume(ctx context.Context, percent int) error {
	if len(p.cfg.VolumeCommand) == 0 {
		return ErrNoCommand
	}
	vol := strconv.Itoa(playback.ClampVolume(percent))
	args := make([]string, 0, len(p.cfg.VolumeCommand)-1)
	for _, a := range p.cfg.VolumeCommand[1:] {
		args = append(args, strings.ReplaceAll(a, VolumePlaceholder, vol))
	}
	//nolint:gosec // mixer binary comes from operator configuration
	out, err := exec.CommandContext(ctx, p.cfg.VolumeCommand[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("set volume: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close stops playback.
func (p *Player) Close() error {
	return p.Stop(context.Background())
}

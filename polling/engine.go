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

// Package polling turns intermittent tag reads into playback decisions.
//
// An Engine polls the reader on its own goroutine while the serving layer
// reads state and writes tags through the accessors. Both sides share one
// mutex: a poll cycle holds it for the probe and the decision, a tag write
// holds it for the whole hardware session, and the inter-cycle sleep runs
// without it.
package polling

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/playback"
	"github.com/ZaparooProject/go-jukebox/power"
)

// PlayEvent describes a play decision.
type PlayEvent struct {
	At   time.Time
	Name string
	Path string
	UID  jukebox.UID
}

// Callbacks are invoked after the poll cycle that caused them, outside the
// engine lock. Either may be nil.
type Callbacks struct {
	OnPlay func(PlayEvent)
	OnStop func(name string)
}

// Engine owns the shared tag state and the debounce counters.
type Engine struct {
	reader    jukebox.Reader
	player    playback.Player
	timer     *power.Timer
	logger    *slog.Logger
	stopCh    chan struct{}
	callbacks Callbacks
	registry  jukebox.Registry
	uid       jukebox.UID
	current   string
	previous  string
	config    Config
	payload   jukebox.Payload
	mu        sync.Mutex
	stopOnce  sync.Once
	absences  uint32
	stop      atomic.Bool
	present   bool

	pollCycles      atomic.Int64
	pollErrors      atomic.Int64
	tagsDetected    atomic.Int64
	lastPollLatency atomic.Int64
	writes          atomic.Int64
	writeErrors     atomic.Int64
}

// New builds an engine. A nil timer disables the network shutdown. A nil
// player is only valid for an engine that never runs, used just to Write.
func New(reader jukebox.Reader, player playback.Player, timer *power.Timer, config *Config, callbacks Callbacks) *Engine {
	cfg := config.withDefaults()
	return &Engine{
		reader:    reader,
		player:    player,
		timer:     timer,
		config:    cfg,
		logger:    cfg.Logger,
		callbacks: callbacks,
		registry:  jukebox.Registry{},
		stopCh:    make(chan struct{}),
	}
}

// outcome carries the side effects of decide that run after unlock.
type outcome struct {
	played         *PlayEvent
	stopped        string
	disableNetwork bool
}

// Run polls until ctx is done or RequestStop is called. Errors of a single
// cycle are logged and never end the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("tag polling started",
		"interval", e.config.PollInterval,
		"page", e.config.Page,
		"stop_threshold", e.config.StopThreshold,
		"replay_threshold", e.config.ReplayThreshold)
	defer e.logger.Info("tag polling stopped")

	timer := time.NewTimer(e.config.PollInterval)
	defer timer.Stop()

	for {
		if e.stop.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		_ = e.PollOnce(ctx)

		timer.Reset(e.config.PollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-timer.C:
		}
	}
}

// PollOnce runs one probe and decision. It returns the reader error of the
// cycle, if any; an empty field is not an error.
func (e *Engine) PollOnce(ctx context.Context) error {
	start := time.Now()

	e.mu.Lock()
	err := e.readTag(ctx)
	out := e.decide(ctx)
	e.mu.Unlock()

	e.pollCycles.Add(1)
	e.lastPollLatency.Store(int64(time.Since(start)))
	if err != nil {
		e.pollErrors.Add(1)
	}

	e.dispatch(ctx, out)
	return err
}

// readTag refreshes uid and payload. Both are stored only when the whole
// probe, UID read and block read succeed. Called with mu held.
func (e *Engine) readTag(ctx context.Context) error {
	e.uid = nil
	e.payload = jukebox.Payload{}
	e.present = false

	session, err := e.reader.Open(ctx)
	if err != nil {
		e.logger.Error("failed to open reader", "error", err)
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Debug("failed to close reader session", "error", cerr)
		}
	}()

	if err := session.Probe(ctx); err != nil {
		if errors.Is(err, jukebox.ErrNoTag) {
			return nil
		}
		e.logger.Error("tag probe failed", "error", err)
		return err
	}
	e.logger.Debug("tag is present")

	uid, err := session.ReadUID(ctx)
	if err != nil {
		e.logger.Error("failed to read tag UID", "error", err)
		return err
	}
	e.logger.Debug("read tag UID", "uid", uid)

	block, err := session.ReadBlock(ctx, e.config.Page)
	if err != nil {
		e.logger.Error("failed to read tag data", "uid", uid, "page", e.config.Page, "error", err)
		return err
	}
	payload, err := jukebox.ParsePayload(block)
	if err != nil {
		e.logger.Error("unexpected tag block", "uid", uid, "error", err)
		return err
	}
	e.logger.Debug("read tag data", "uid", uid, "data", payload)

	e.uid = uid.Clone()
	e.payload = payload
	e.present = true
	e.tagsDetected.Add(1)
	return nil
}

// decide acts on the state of the current cycle. Called with mu held.
func (e *Engine) decide(ctx context.Context) outcome {
	var out outcome

	if e.timer != nil && e.timer.Tick() {
		out.disableNetwork = true
	}

	if !e.present {
		if e.absences < math.MaxUint32 {
			e.absences++
		}
		e.logger.Debug("no tag data", "absences", e.absences)
		if e.absences >= e.config.StopThreshold {
			out.stopped = e.stopPlayback(ctx)
		}
		return out
	}

	switch cmd := jukebox.DecodePayload(e.payload).(type) {
	case jukebox.UnknownCommand:
		e.logger.Warn("unknown control byte", "control", cmd.Control, "uid", e.uid)
	case jukebox.PlayMusic:
		name, ok := e.registry[cmd.Key]
		if !ok {
			e.logger.Warn("music file control byte with unknown hash", "data", cmd.Key, "uid", e.uid)
			return out
		}
		if name != e.current {
			out.played = e.maybePlay(ctx, name)
		}
		e.absences = 0
	}
	return out
}

// maybePlay starts name unless it is the file that was just playing and
// the tag was not away long enough. Called with mu held.
func (e *Engine) maybePlay(ctx context.Context, name string) *PlayEvent {
	path := e.config.path(name)
	if !e.config.exists(name) {
		e.logger.Error("music file not found", "path", path)
		return nil
	}
	if name == e.previous && e.absences < e.config.ReplayThreshold {
		return nil
	}

	e.logger.Info("playing music file", "path", path, "uid", e.uid)
	if err := e.player.Load(ctx, path); err != nil {
		e.logger.Error("failed to load music file", "path", path, "error", err)
		return nil
	}
	if err := e.player.Play(ctx); err != nil {
		e.logger.Error("failed to play music file", "path", path, "error", err)
		return nil
	}
	e.current = name
	e.previous = name
	return &PlayEvent{At: time.Now(), Name: name, Path: path, UID: e.uid.Clone()}
}

// stopPlayback clears current and stops the player if it is busy. It
// returns the name that was current. Called with mu held.
func (e *Engine) stopPlayback(ctx context.Context) string {
	was := e.current
	e.current = ""

	playing, err := e.player.IsPlaying(ctx)
	if err != nil {
		e.logger.Warn("failed to query player state", "error", err)
		return was
	}
	if !playing {
		return was
	}
	e.logger.Info("stopping playback", "file", was, "absences", e.absences)
	if err := e.player.Stop(ctx); err != nil {
		e.logger.Error("failed to stop playback", "error", err)
	}
	return was
}

func (e *Engine) dispatch(ctx context.Context, out outcome) {
	if out.disableNetwork {
		e.timer.DisableNetwork(ctx)
	}
	if out.played != nil && e.callbacks.OnPlay != nil {
		e.callbacks.OnPlay(*out.played)
	}
	if out.stopped != "" && e.callbacks.OnStop != nil {
		e.callbacks.OnStop(out.stopped)
	}
}

// RequestStop makes Run return before its next cycle. Safe from any
// goroutine and idempotent.
func (e *Engine) RequestStop() {
	e.stop.Store(true)
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

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

// Package power turns the network off after a period without user
// activity. The Timer holds the inactivity state; a Switch performs the
// actual shutdown.
package power

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Switch disables the network.
type Switch interface {
	Disable(ctx context.Context) error
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// WithLogger sets the logger used for the countdown and shutdown messages.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) {
		t.logger = l
	}
}

// Timer tracks time since the last user activity. Tick, Remaining and
// Disabled must be serialised by the caller; RequestReset may be called
// from any goroutine.
type Timer struct {
	reference time.Time
	lastLog   time.Time
	sw        Switch
	now       func() time.Time
	logger    *slog.Logger
	delay     time.Duration
	reset     atomic.Bool
	disabled  bool
}

// NewTimer starts the countdown now. A delay of zero or less never fires.
func NewTimer(delay time.Duration, sw Switch, opts ...Option) *Timer {
	t := &Timer{
		sw:     sw,
		delay:  delay,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.reference = t.now()
	return t
}

// RequestReset asks the next Tick to restart the countdown. It never
// re-enables a network that was already switched off.
func (t *Timer) RequestReset() {
	t.reset.Store(true)
}

// Tick consumes a pending reset and reports whether the delay has just
// elapsed. It returns true at most once per Timer.
func (t *Timer) Tick() bool {
	now := t.now()
	if t.reset.CompareAndSwap(true, false) {
		t.reference = now
	}
	if t.disabled || t.delay <= 0 {
		return false
	}

	elapsed := now.Sub(t.reference)
	if elapsed > t.delay {
		t.disabled = true
		return true
	}
	if now.Sub(t.lastLog) >= 10*time.Second {
		t.lastLog = now
		t.logger.Debug("network shutdown pending", "in", (t.delay - elapsed).Round(time.Second))
	}
	return false
}

// Remaining returns the time left before shutdown, clamped at zero. It
// reads the reference as of the last Tick.
func (t *Timer) Remaining() time.Duration {
	if t.disabled || t.delay <= 0 {
		return 0
	}
	return max(t.delay-t.now().Sub(t.reference), 0)
}

// Disabled reports whether the shutdown has fired.
func (t *Timer) Disabled() bool {
	return t.disabled
}

// Delay returns the configured delay.
func (t *Timer) Delay() time.Duration {
	return t.delay
}

// DisableNetwork runs the switch. Callers invoke it once after Tick
// returns true, outside any lock. Failures are logged, not retried.
func (t *Timer) DisableNetwork(ctx context.Context) {
	if t.sw == nil {
		return
	}
	t.logger.Info("disabling network after inactivity", "delay", t.delay)
	if err := t.sw.Disable(ctx); err != nil {
		t.logger.Error("failed to disable network", "error", err)
	}
}

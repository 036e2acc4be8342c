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
	"time"

	"github.com/ZaparooProject/go-jukebox"
)

// UID returns the UID read in the last cycle. ok is false when no tag was
// read.
func (e *Engine) UID() (jukebox.UID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return nil, false
	}
	return e.uid.Clone(), true
}

// Data returns the payload read in the last cycle. ok is false when no tag
// was read, which keeps an all-zero block distinguishable from absence.
func (e *Engine) Data() (jukebox.Payload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payload, e.present
}

// SetRegistry merges entries into the registry. Existing keys are
// overwritten.
func (e *Engine) SetRegistry(entries jukebox.Registry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range entries {
		e.registry[k] = v
	}
}

// ReplaceRegistry swaps the whole registry, dropping keys not in entries.
func (e *Engine) ReplaceRegistry(entries jukebox.Registry) {
	clone := entries.Clone()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry = clone
}

// Lookup resolves key against the registry.
func (e *Engine) Lookup(key jukebox.Payload) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	name, ok := e.registry[key]
	return name, ok
}

// ResetPowerTimer restarts the inactivity countdown on the next cycle. It
// does not take the engine lock.
func (e *Engine) ResetPowerTimer() {
	if e.timer != nil {
		e.timer.RequestReset()
	}
}

// PowerTimeLeft returns the time until the network is switched off, or zero
// once it has been.
func (e *Engine) PowerTimeLeft() time.Duration {
	if e.timer == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer.Remaining()
}

// NetworkDisabled reports whether the inactivity shutdown has fired.
func (e *Engine) NetworkDisabled() bool {
	if e.timer == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer.Disabled()
}

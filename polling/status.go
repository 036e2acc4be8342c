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
)

// Metrics are operational counters of an engine.
type Metrics struct {
	PollCycles      int64         `json:"poll_cycles"`
	PollErrors      int64         `json:"poll_errors"`
	TagsDetected    int64         `json:"tags_detected"`
	Writes          int64         `json:"writes"`
	WriteErrors     int64         `json:"write_errors"`
	LastPollLatency time.Duration `json:"last_poll_latency_ns"`
}

// Status is a snapshot of the engine for display.
type Status struct {
	UID              string  `json:"uid"`
	Data             string  `json:"data"`
	Current          string  `json:"current"`
	Previous         string  `json:"previous"`
	Metrics          Metrics `json:"metrics"`
	PowerSecondsLeft float64 `json:"power_seconds_left"`
	Absences         uint32  `json:"absences"`
	RegistrySize     int     `json:"registry_size"`
	Present          bool    `json:"present"`
	NetworkDisabled  bool    `json:"network_disabled"`
}

// Metrics returns the current counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		PollCycles:      e.pollCycles.Load(),
		PollErrors:      e.pollErrors.Load(),
		TagsDetected:    e.tagsDetected.Load(),
		Writes:          e.writes.Load(),
		WriteErrors:     e.writeErrors.Load(),
		LastPollLatency: time.Duration(e.lastPollLatency.Load()),
	}
}

// Status returns a consistent snapshot of the session state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	s := Status{
		Present:      e.present,
		Current:      e.current,
		Previous:     e.previous,
		Absences:     e.absences,
		RegistrySize: len(e.registry),
	}
	if e.present {
		s.UID = e.uid.String()
		s.Data = e.payload.String()
	}
	if e.timer != nil {
		s.PowerSecondsLeft = e.timer.Remaining().Seconds()
		s.NetworkDisabled = e.timer.Disabled()
	}
	e.mu.Unlock()

	s.Metrics = e.Metrics()
	return s
}

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

// Package playback defines the audio output the engine drives. Backends
// live in the mpd and command subpackages.
package playback

import (
	"context"
	"errors"
)

// ErrNothingLoaded is returned by Play before any Load.
var ErrNothingLoaded = errors.New("no track loaded")

// Player plays one track at a time. Paths are absolute file paths.
type Player interface {
	// Load selects path, replacing anything loaded or playing.
	Load(ctx context.Context, path string) error
	// Play starts the loaded track from the beginning.
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
	IsPlaying(ctx context.Context) (bool, error)
	// SetVolume sets the output volume in percent, clamped to 0..100.
	SetVolume(ctx context.Context, percent int) error
	Close() error
}

// ClampVolume limits percent to 0..100.
func ClampVolume(percent int) int {
	return min(max(percent, 0), 100)
}

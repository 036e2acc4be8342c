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

package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/go-jukebox/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayer_Lifecycle(t *testing.T) {
	t.Parallel()

	// $1 is the track path.
	p := New(Config{PlayCommand: []string{"sh", "-c", "sleep 5", "player"}})
	defer p.Close()
	ctx := context.Background()

	require.ErrorIs(t, p.Play(ctx), playback.ErrNothingLoaded)

	require.NoError(t, p.Load(ctx, "/music/a.mp3"))
	require.NoError(t, p.Play(ctx))
	playing, err := p.IsPlaying(ctx)
	require.NoError(t, err)
	assert.True(t, playing)

	require.NoError(t, p.Stop(ctx))
	playing, err = p.IsPlaying(ctx)
	require.NoError(t, err)
	assert.False(t, playing)
}

func TestPlayer_TrackEnds(t *testing.T) {
	t.Parallel()

	p := New(Config{PlayCommand: []string{"true"}})
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, "/music/a.mp3"))
	require.NoError(t, p.Play(ctx))

	assert.Eventually(t, func() bool {
		playing, err := p.IsPlaying(ctx)
		return err == nil && !playing
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlayer_StartFailure(t *testing.T) {
	t.Parallel()

	p := New(Config{PlayCommand: []string{"/nonexistent/player"}})
	require.NoError(t, p.Load(context.Background(), "/music/a.mp3"))
	require.Error(t, p.Play(context.Background()))
}

func TestPlayer_SetVolume(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "vol")
	p := New(Config{VolumeCommand: []string{"sh", "-c", `printf %s "$1" > "$2"`, "mixer", VolumePlaceholder + "%", out}})

	require.NoError(t, p.SetVolume(context.Background(), 120))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "100%", string(got))

	failing := New(Config{VolumeCommand: []string{"false"}})
	require.Error(t, failing.SetVolume(context.Background(), 50))
}

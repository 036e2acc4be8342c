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

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, file := range []string{"a.mp3", "b.mp3", "a.mp3"} {
		p, err := s.Record(ctx, file, "04A1B2C3", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		_, err = uuid.Parse(p.ID)
		require.NoError(t, err)
	}

	plays, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, plays, 2)
	assert.Equal(t, "a.mp3", plays[0].File)
	assert.Equal(t, base.Add(2*time.Minute), plays[0].StartedAt)
	assert.Equal(t, "b.mp3", plays[1].File)
	assert.Equal(t, "04A1B2C3", plays[1].UID)

	n, err := s.Count(ctx, "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_RecentZeroLimit(t *testing.T) {
	t.Parallel()
	s := openMemory(t)

	plays, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, plays)
}

func TestStore_ReopenFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, "a.mp3", "01020304", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	plays, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "a.mp3", plays[0].File)
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(context.Background(), "a.mp3", "", time.Now())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

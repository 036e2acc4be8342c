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

package pn532

import (
	"context"
	"testing"

	"github.com/ZaparooProject/go-jukebox"
	testutil "github.com/ZaparooProject/go-jukebox/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_SessionLifecycle(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	key := jukebox.MusicFileKey("song.mp3")
	tag.SetBlock(jukebox.DefaultPage, key[:])
	device, mock := newEmulatedDevice(t, tag)
	reader := NewReader(device)
	ctx := context.Background()

	sess, err := reader.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Probe(ctx))

	uid, err := sess.ReadUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, jukebox.UID(testutil.TestNTAG213UID), uid)

	block, err := sess.ReadBlock(ctx, jukebox.DefaultPage)
	require.NoError(t, err)
	assert.Equal(t, key[:], block)

	require.NoError(t, sess.Close())
	assert.Equal(t, 1, mock.CallCount(cmdInRelease))
}

func TestReader_NoTag(t *testing.T) {
	t.Parallel()

	device, mock := newEmulatedDevice(t, nil)
	reader := NewReader(device)
	ctx := context.Background()

	sess, err := reader.Open(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, sess.Probe(ctx), jukebox.ErrNoTag)

	_, err = sess.ReadUID(ctx)
	require.ErrorIs(t, err, jukebox.ErrNoTag)
	_, err = sess.ReadBlock(ctx, 10)
	require.ErrorIs(t, err, jukebox.ErrNoTag)

	require.NoError(t, sess.Close())
	assert.Equal(t, 0, mock.CallCount(cmdInRelease))
}

func TestReader_WriteBlockPersistsFirstPage(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	device, _ := newEmulatedDevice(t, tag)
	reader := NewReader(device)
	ctx := context.Background()

	sess, err := reader.Open(ctx)
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.Probe(ctx))

	data := []byte{0x11, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	require.NoError(t, sess.WriteBlock(ctx, 10, data))

	block, err := tag.ReadPages(10)
	require.NoError(t, err)
	assert.Equal(t, data[:4], block[:4])
	assert.Equal(t, make([]byte, 12), block[4:])

	require.ErrorIs(t, sess.WriteBlock(ctx, 10, []byte{1}), ErrInvalidParameter)
}

func TestReader_ClosedTransport(t *testing.T) {
	t.Parallel()

	device, mock := newEmulatedDevice(t, nil)
	require.NoError(t, mock.Close())

	_, err := NewReader(device).Open(context.Background())
	require.ErrorIs(t, err, ErrTransportClosed)
}

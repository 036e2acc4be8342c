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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	retries := 0
	got, err := Do(context.Background(), Config{
		MaxRetries: 3,
		OnRetry: func() error {
			retries++
			return nil
		},
	}, func(context.Context) (int, bool, error) {
		attempts++
		return attempts, attempts < 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, 2, retries)
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := Do(context.Background(), Config{MaxRetries: 2, Description: "wake"},
		func(context.Context) (struct{}, bool, error) {
			attempts++
			return struct{}{}, true, nil
		})

	require.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "wake")
	assert.Equal(t, 3, attempts)
}

func TestDo_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	attempts := 0
	_, err := Do(context.Background(), Config{MaxRetries: 5}, func(context.Context) (int, bool, error) {
		attempts++
		return 0, false, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDo_OnRetryAborts(t *testing.T) {
	t.Parallel()

	stop := errors.New("stop")
	_, err := Do(context.Background(), Config{MaxRetries: 5, OnRetry: func() error { return stop }},
		func(context.Context) (int, bool, error) { return 0, true, nil })

	require.ErrorIs(t, err, stop)
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Config{MaxRetries: 5}, func(context.Context) (int, bool, error) {
		t.Fatal("operation must not run")
		return 0, false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoll(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		calls := 0
		got, err := Poll(context.Background(), time.Second, time.Millisecond,
			func(context.Context) (string, bool, error) {
				calls++
				return "ready", calls < 4, nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ready", got)
		assert.Equal(t, 4, calls)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		_, err := Poll(context.Background(), 20*time.Millisecond, time.Millisecond,
			func(context.Context) (int, bool, error) { return 0, true, nil })
		require.ErrorIs(t, err, ErrTimeout)
	})
}

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

// Package retry holds the bounded retry and readiness polling loops shared
// by the PN532 transports.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrExhausted = errors.New("retries exhausted")
	ErrTimeout   = errors.New("timed out waiting for condition")
)

// Operation is a single attempt. It returns the result, whether another
// attempt should be made, and any error that must stop retrying at once.
type Operation[T any] func(ctx context.Context) (T, bool, error)

// Config bounds Do.
type Config struct {
	// OnRetry runs before each repeated attempt. A non-nil error aborts.
	OnRetry     func() error
	Description string
	MaxRetries  int
	Delay       time.Duration
}

// Do runs op until it stops asking for a retry, fails permanently, the
// retry budget runs out, or ctx is done.
func Do[T any](ctx context.Context, cfg Config, op Operation[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, again, err := op(ctx)
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			if err := cfg.OnRetry(); err != nil {
				return zero, err
			}
		}
		if err := sleep(ctx, cfg.Delay); err != nil {
			return zero, err
		}
	}

	if cfg.Description != "" {
		return zero, fmt.Errorf("%s: %w after %d attempts", cfg.Description, ErrExhausted, cfg.MaxRetries+1)
	}
	return zero, ErrExhausted
}

// Poll runs op every interval until it stops asking for a retry or the
// timeout elapses. Used for device readiness checks.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, op Operation[T]) (T, error) {
	var zero T
	if interval <= 0 {
		interval = time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		result, again, err := op(ctx)
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if err := sleep(ctx, interval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return zero, ErrTimeout
			}
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

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

package jukebox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is one short-lived conversation with the reader. The engine opens
// a fresh session per cycle and always closes it, whatever the outcome.
type Session interface {
	// Probe requests a tag in the field. It returns ErrNoTag when none
	// answers.
	Probe(ctx context.Context) error
	// ReadUID returns the identity of the probed tag.
	ReadUID(ctx context.Context) (UID, error)
	// ReadBlock returns the 16 bytes starting at page.
	ReadBlock(ctx context.Context, page uint8) ([]byte, error)
	// WriteBlock writes data at page. Only the first PageSize bytes are
	// guaranteed to persist.
	WriteBlock(ctx context.Context, page uint8, data []byte) error
	Close() error
}

// Reader opens sessions against one physical reader.
type Reader interface {
	Open(ctx context.Context) (Session, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (Session, error)

// Open calls f.
func (f ReaderFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// WithTimeout bounds every reader call to d. A call that overruns returns
// ErrReaderTimeout and poisons its session: later calls on that session
// fail with ErrSessionPoisoned without touching the hardware. A d of zero
// or less returns r unchanged.
func WithTimeout(r Reader, d time.Duration) Reader {
	if d <= 0 {
		return r
	}
	return &timeoutReader{reader: r, timeout: d}
}

type timeoutReader struct {
	reader  Reader
	timeout time.Duration
}

func (t *timeoutReader) Open(ctx context.Context) (Session, error) {
	s, err := bounded(ctx, t.timeout, t.reader.Open)
	if err != nil {
		return nil, err
	}
	return &timeoutSession{session: s, timeout: t.timeout}, nil
}

type timeoutSession struct {
	session  Session
	timeout  time.Duration
	poisoned bool
}

func (s *timeoutSession) Probe(ctx context.Context) error {
	_, err := guard(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.session.Probe(ctx)
	})
	return err
}

func (s *timeoutSession) ReadUID(ctx context.Context) (UID, error) {
	return guard(ctx, s, s.session.ReadUID)
}

func (s *timeoutSession) ReadBlock(ctx context.Context, page uint8) ([]byte, error) {
	return guard(ctx, s, func(ctx context.Context) ([]byte, error) {
		return s.session.ReadBlock(ctx, page)
	})
}

func (s *timeoutSession) WriteBlock(ctx context.Context, page uint8, data []byte) error {
	_, err := guard(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.session.WriteBlock(ctx, page, data)
	})
	return err
}

// Close releases the underlying session. A poisoned session may still have
// a call in flight, so Close is bounded too.
func (s *timeoutSession) Close() error {
	_, err := bounded(context.Background(), s.timeout, func(context.Context) (struct{}, error) {
		return struct{}{}, s.session.Close()
	})
	return err
}

func guard[T any](ctx context.Context, s *timeoutSession, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.poisoned {
		return zero, ErrSessionPoisoned
	}
	v, err := bounded(ctx, s.timeout, fn)
	if errors.Is(err, ErrReaderTimeout) {
		s.poisoned = true
	}
	return v, err
}

// bounded runs fn on its own goroutine so a wedged driver cannot hold the
// caller past d.
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		err error
		v   T
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrReaderTimeout, d)
		}
		return zero, ctx.Err()
	}
}

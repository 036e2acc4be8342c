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
	"fmt"

	"github.com/ZaparooProject/go-jukebox"
)

// Reader exposes a Device as a jukebox.Reader. Each session probes for one
// tag and releases every target on Close, so no activation state carries
// over between sessions.
type Reader struct {
	device *Device
}

var _ jukebox.Reader = (*Reader)(nil)

// NewReader wraps an initialised device.
func NewReader(device *Device) *Reader {
	return &Reader{device: device}
}

// Device returns the wrapped device.
func (r *Reader) Device() *Device {
	return r.device
}

func (r *Reader) Open(ctx context.Context) (jukebox.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.device.transport.IsConnected() {
		return nil, NewTransportError("open session", "", ErrTransportClosed, ErrorTypePermanent)
	}
	return &session{device: r.device}, nil
}

type session struct {
	device *Device
	tag    *DetectedTag
}

func (s *session) Probe(ctx context.Context) error {
	tag, err := s.device.DetectTag(ctx)
	if err != nil {
		s.tag = nil
		return err
	}
	s.tag = tag
	return nil
}

func (s *session) ReadUID(context.Context) (jukebox.UID, error) {
	if s.tag == nil {
		return nil, ErrTagNotFound
	}
	return jukebox.UID(s.tag.UIDBytes).Clone(), nil
}

func (s *session) ReadBlock(ctx context.Context, page uint8) ([]byte, error) {
	if s.tag == nil {
		return nil, ErrTagNotFound
	}
	return s.device.NTAGRead(ctx, s.tag.TargetNumber, page)
}

// WriteBlock persists the first page of data. NTAG WRITE covers one page,
// so the rest of the block is not written.
func (s *session) WriteBlock(ctx context.Context, page uint8, data []byte) error {
	if s.tag == nil {
		return ErrTagNotFound
	}
	if len(data) < ntagPageSize {
		return fmt.Errorf("%w: block shorter than a page", ErrInvalidParameter)
	}
	return s.device.NTAGWrite(ctx, s.tag.TargetNumber, page, data[:ntagPageSize])
}

func (s *session) Close() error {
	if s.tag == nil {
		return nil
	}
	s.tag = nil
	ctx, cancel := context.WithTimeout(context.Background(), s.device.config.Timeout)
	defer cancel()
	return s.device.InRelease(ctx, 0)
}

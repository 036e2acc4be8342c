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

import "errors"

var (
	// ErrNoTag is returned by a Session when no tag is in the field.
	ErrNoTag = errors.New("no tag present")
	// ErrReaderTimeout is returned when a reader call exceeds its bound.
	ErrReaderTimeout = errors.New("reader call timed out")
	// ErrSessionPoisoned is returned by every call on a session after one
	// of its calls timed out.
	ErrSessionPoisoned = errors.New("reader session abandoned after timeout")
	// ErrInvalidPayloadLength is returned when a payload is not PayloadSize
	// bytes long.
	ErrInvalidPayloadLength = errors.New("invalid payload length")
)

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

// Package jukebox holds the domain types shared by the tag-triggered player:
// tag identities and payloads, the music registry, and the Reader
// capability the polling engine drives.
//
// The engine itself lives in package polling. Hardware backends live in
// package pn532 and its transports; playback backends in package playback.
//
// A tag payload is one 16-byte block read from a fixed page. Byte 0 is the
// control byte:
//
//	0x11  play the music file whose key equals the whole block
//
// A music file key is the MD5 digest of the file's base name with byte 0
// overwritten by the control byte, so a key is both its own command and its
// registry lookup value.
package jukebox

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
	"bytes"
	"crypto/md5" //nolint:gosec // tag keys are content addresses, not secrets
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// PayloadSize is the size of one read block.
	PayloadSize = 16
	// PageSize is the size of one writable tag page.
	PageSize = 4
	// DefaultPage is the first user page holding the payload.
	DefaultPage uint8 = 10
)

// ControlMusicFile is the only control byte the engine acts on.
const ControlMusicFile byte = 0x11

// UID identifies a tag. A nil UID means no tag.
type UID []byte

func (u UID) String() string {
	return strings.ToUpper(hex.EncodeToString(u))
}

// Equal reports whether u and other identify the same tag.
func (u UID) Equal(other UID) bool {
	return bytes.Equal(u, other)
}

// Clone returns a copy that does not alias u.
func (u UID) Clone() UID {
	if u == nil {
		return nil
	}
	out := make(UID, len(u))
	copy(out, u)
	return out
}

// Payload is one 16-byte block from the tag.
type Payload [PayloadSize]byte

// Control returns the control byte.
func (p Payload) Control() byte {
	return p[0]
}

func (p Payload) String() string {
	return hex.EncodeToString(p[:])
}

// ParsePayload copies a raw block into a Payload.
func ParsePayload(b []byte) (Payload, error) {
	var p Payload
	if len(b) != PayloadSize {
		return p, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPayloadLength, len(b), PayloadSize)
	}
	copy(p[:], b)
	return p, nil
}

// ParsePayloadHex decodes a 32 hex digit block.
func ParsePayloadHex(s string) (Payload, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Payload{}, fmt.Errorf("decode payload hex: %w", err)
	}
	return ParsePayload(raw)
}

// MusicFileKey derives the payload that plays the file with the given base
// name.
func MusicFileKey(name string) Payload {
	key := Payload(md5.Sum([]byte(name))) //nolint:gosec // see import
	key[0] = ControlMusicFile
	return key
}

// Command is the decoded meaning of a payload.
type Command interface {
	isCommand()
}

// PlayMusic asks for the file registered under Key.
type PlayMusic struct {
	Key Payload
}

// UnknownCommand carries a control byte the engine ignores.
type UnknownCommand struct {
	Control byte
}

func (PlayMusic) isCommand()      {}
func (UnknownCommand) isCommand() {}

// DecodePayload classifies a payload by its control byte.
func DecodePayload(p Payload) Command {
	switch p.Control() {
	case ControlMusicFile:
		return PlayMusic{Key: p}
	default:
		return UnknownCommand{Control: p.Control()}
	}
}

// Registry maps music file keys to file names.
type Registry map[Payload]string

// Clone returns a copy of r.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NewRegistry builds a registry keyed by MusicFileKey for each name.
func NewRegistry(names ...string) Registry {
	r := make(Registry, len(names))
	for _, name := range names {
		r[MusicFileKey(name)] = name
	}
	return r
}

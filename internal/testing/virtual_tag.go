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

package testing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	ntag213Pages = 45
	pageSize     = 4
	readSize     = 16
	firstUser    = 4
	lastUser     = 39
)

var (
	ErrTagAbsent      = errors.New("virtual tag not present")
	ErrPageProtected  = errors.New("page is write protected")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrWriteRejected  = errors.New("write rejected")
)

// VirtualTag is an in-memory NTAG213. Pages 0-3 and 40-44 are read-only;
// reads wrap past the last page like the real chip. Safe for concurrent
// use.
type VirtualTag struct {
	failWrites map[uint8]bool
	uid        []byte
	memory     [ntag213Pages][pageSize]byte
	mu         sync.Mutex
	present    bool
}

// NewVirtualNTAG213 returns a present tag with a blank user area. A nil
// uid uses TestNTAG213UID.
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestNTAG213UID
	}
	v := &VirtualTag{
		uid:        append([]byte(nil), uid...),
		present:    true,
		failWrites: make(map[uint8]bool),
	}
	copy(v.memory[0][:3], uid)
	if len(uid) > 3 {
		copy(v.memory[1][:], uid[3:])
	}
	// Capability container: NDEF, 144 bytes, read/write.
	v.memory[3] = [pageSize]byte{0xE1, 0x10, 0x12, 0x00}
	// Empty NDEF TLV.
	v.memory[4] = [pageSize]byte{0x03, 0x00, 0xFE, 0x00}
	return v
}

// UID returns a copy of the tag UID.
func (v *VirtualTag) UID() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.uid...)
}

// UIDString returns the UID in upper-case hex.
func (v *VirtualTag) UIDString() string {
	return strings.ToUpper(hex.EncodeToString(v.UID()))
}

// Present reports whether the tag is in the field.
func (v *VirtualTag) Present() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.present
}

// Remove takes the tag out of the field.
func (v *VirtualTag) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = false
}

// Insert puts the tag back.
func (v *VirtualTag) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = true
}

// FailWrites makes writes to page fail until cleared.
func (v *VirtualTag) FailWrites(page uint8, fail bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failWrites[page] = fail
}

// ReadPages returns the 16 bytes starting at page.
func (v *VirtualTag) ReadPages(page uint8) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.present {
		return nil, ErrTagAbsent
	}
	if int(page) >= ntag213Pages {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	out := make([]byte, 0, readSize)
	for i := range readSize / pageSize {
		p := v.memory[(int(page)+i)%ntag213Pages]
		out = append(out, p[:]...)
	}
	return out, nil
}

// WritePage writes one 4-byte page.
func (v *VirtualTag) WritePage(page uint8, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.present {
		return ErrTagAbsent
	}
	if len(data) != pageSize {
		return fmt.Errorf("page write needs %d bytes, got %d", pageSize, len(data))
	}
	if page < firstUser || page > lastUser {
		return fmt.Errorf("%w: %d", ErrPageProtected, page)
	}
	if v.failWrites[page] {
		return fmt.Errorf("%w: page %d", ErrWriteRejected, page)
	}
	copy(v.memory[page][:], data)
	return nil
}

// SetBlock writes a 16-byte block starting at page, bypassing presence and
// write protection. Used to seed tag content.
func (v *VirtualTag) SetBlock(page uint8, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := 0; i < len(data); i += pageSize {
		p := (int(page) + i/pageSize) % ntag213Pages
		copy(v.memory[p][:], data[i:min(i+pageSize, len(data))])
	}
}

// SetNDEF stores msg as an NDEF message TLV in the user area.
func (v *VirtualTag) SetNDEF(msg []byte) {
	tlv := make([]byte, 0, len(msg)+3)
	tlv = append(tlv, 0x03, byte(len(msg)))
	tlv = append(tlv, msg...)
	tlv = append(tlv, 0xFE)
	v.SetBlock(firstUser, tlv)
}

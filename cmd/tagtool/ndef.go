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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"

	"github.com/ZaparooProject/go-jukebox"
)

// NTAG21x user memory starts at page 4. NTAG213 ends at page 39, which is
// the smallest chip the jukebox supports.
const (
	firstUserPage = 4
	lastUserPage  = 39
)

const (
	tlvNull       = 0x00
	tlvLock       = 0x01
	tlvMemory     = 0x02
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
)

var (
	errNoNDEF     = errors.New("no NDEF message TLV")
	errShortTLV   = errors.New("truncated TLV")
	errBadNDEFLen = errors.New("NDEF length exceeds user memory")
)

// ndefInfo locates an NDEF message in user memory.
type ndefInfo struct {
	Message *ndef.Message
	// FirstPage and LastPage bound the TLV, value included.
	FirstPage uint8
	LastPage  uint8
	Length    int
}

// Overlaps reports whether the TLV shares a page with the payload block
// starting at page.
func (n ndefInfo) Overlaps(page uint8) bool {
	end := page + jukebox.PayloadSize/jukebox.PageSize - 1
	return n.FirstPage <= end && page <= n.LastPage
}

// readUserMemory reads pages firstUserPage..lastUserPage. It stops early
// once a terminator TLV has been seen.
func readUserMemory(ctx context.Context, session jukebox.Session) ([]byte, error) {
	var mem []byte
	for page := uint8(firstUserPage); page <= lastUserPage; page += jukebox.PayloadSize / jukebox.PageSize {
		block, err := session.ReadBlock(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page, err)
		}
		mem = append(mem, block...)
		if _, _, _, err := findNDEF(mem); err == nil || !errors.Is(err, errShortTLV) {
			break
		}
	}
	return mem, nil
}

// findNDEF walks the TLVs in mem and returns where the first NDEF TLV
// starts, where its value starts and the value length.
func findNDEF(mem []byte) (start, offset, length int, err error) {
	for i := 0; i < len(mem); {
		switch mem[i] {
		case tlvNull:
			i++
			continue
		case tlvTerminator:
			return 0, 0, 0, errNoNDEF
		}
		if i+1 >= len(mem) {
			return 0, 0, 0, errShortTLV
		}
		kind := mem[i]
		n, hdr := int(mem[i+1]), 2
		if n == 0xFF {
			if i+3 >= len(mem) {
				return 0, 0, 0, errShortTLV
			}
			n, hdr = int(mem[i+2])<<8|int(mem[i+3]), 4
		}
		if kind == tlvNDEF {
			if i+hdr+n > len(mem) {
				return 0, 0, 0, errShortTLV
			}
			return i, i + hdr, n, nil
		}
		if kind != tlvLock && kind != tlvMemory {
			return 0, 0, 0, fmt.Errorf("unknown TLV type 0x%02x at offset %d", kind, i)
		}
		i += hdr + n
	}
	return 0, 0, 0, errShortTLV
}

// parseNDEF decodes the NDEF message held in user memory read from page
// firstUserPage on.
func parseNDEF(mem []byte) (ndefInfo, error) {
	start, offset, length, err := findNDEF(mem)
	if errors.Is(err, errShortTLV) && len(mem) >= (lastUserPage-firstUserPage+1)*jukebox.PageSize {
		return ndefInfo{}, errBadNDEFLen
	}
	if err != nil {
		return ndefInfo{}, err
	}

	info := ndefInfo{
		Length:    length,
		FirstPage: uint8(firstUserPage + start/jukebox.PageSize),
		LastPage:  uint8(firstUserPage + (offset+max(length, 1)-1)/jukebox.PageSize),
	}
	if length == 0 {
		return info, nil
	}
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(mem[offset : offset+length]); err != nil {
		return info, fmt.Errorf("decode NDEF message: %w", err)
	}
	info.Message = msg
	return info, nil
}

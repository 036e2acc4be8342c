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
	"encoding/hex"
	"strings"
	"time"
)

// TagType is the tag family inferred from the SEL_RES byte.
type TagType string

const (
	TagTypeNTAG    TagType = "NTAG"
	TagTypeMIFARE  TagType = "MIFARE"
	TagTypeUnknown TagType = "UNKNOWN"
)

// DetectedTag is one target reported by InListPassiveTarget.
type DetectedTag struct {
	DetectedAt   time.Time
	UID          string
	Type         TagType
	UIDBytes     []byte
	ATQ          []byte
	SAK          byte
	TargetNumber byte
}

func identifyTagType(sak byte) TagType {
	switch sak {
	case 0x00:
		return TagTypeNTAG
	case 0x08, 0x09, 0x18, 0x88:
		return TagTypeMIFARE
	default:
		return TagTypeUnknown
	}
}

// parsePassiveTargets decodes an InListPassiveTarget response body for
// 106 kbps type A targets.
func parsePassiveTargets(data []byte, now time.Time) ([]*DetectedTag, error) {
	if len(data) < 1 {
		return nil, ErrInvalidResponse
	}
	count := int(data[0])
	tags := make([]*DetectedTag, 0, count)
	offset := 1
	for range count {
		// Tg, SENS_RES(2), SEL_RES, NFCIDLength
		if len(data) < offset+5 {
			return nil, ErrInvalidResponse
		}
		uidLen := int(data[offset+4])
		if len(data) < offset+5+uidLen {
			return nil, ErrInvalidResponse
		}
		uid := make([]byte, uidLen)
		copy(uid, data[offset+5:offset+5+uidLen])
		sak := data[offset+3]
		tags = append(tags, &DetectedTag{
			DetectedAt:   now,
			UID:          strings.ToUpper(hex.EncodeToString(uid)),
			Type:         identifyTagType(sak),
			UIDBytes:     uid,
			ATQ:          []byte{data[offset+1], data[offset+2]},
			SAK:          sak,
			TargetNumber: data[offset],
		})
		offset += 5 + uidLen
		// ATS follows for ISO14443-4 targets.
		if sak&0x20 != 0 && len(data) > offset {
			offset += int(data[offset])
		}
	}
	return tags, nil
}

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

import "fmt"

// Command bytes understood by Emulator.
const (
	CmdGetFirmwareVersion  = 0x02
	CmdSAMConfiguration    = 0x14
	CmdRFConfiguration     = 0x32
	CmdInDataExchange      = 0x40
	CmdInListPassiveTarget = 0x4A
	CmdInRelease           = 0x52
)

// Common UIDs for testing.
var (
	TestNTAG213UID  = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
	TestMIFARE1KUID = []byte{0x12, 0x34, 0x56, 0x78}
)

// The builders below return response bodies as a transport hands them to
// the device: response code first, no frame identifier.

// BuildFirmwareVersionResponse returns PN532 v1.6 supporting ISO14443A/B.
func BuildFirmwareVersionResponse() []byte {
	return []byte{0x03, 0x32, 0x01, 0x06, 0x07}
}

func BuildSAMConfigurationResponse() []byte {
	return []byte{0x15}
}

func BuildRFConfigurationResponse() []byte {
	return []byte{0x33}
}

// BuildTagDetectionResponse returns one ISO14443A target with the SAK of
// tagType ("NTAG213", "MIFARE1K" or anything else for a generic target).
func BuildTagDetectionResponse(tagType string, uid []byte) []byte {
	atqa := []byte{0x00, 0x44}
	var sak byte
	switch tagType {
	case "NTAG213":
	case "MIFARE1K":
		atqa = []byte{0x00, 0x04}
		sak = 0x08
	default:
		atqa = []byte{0x00, 0x04}
		sak = 0x20
	}
	resp := []byte{0x4B, 0x01, 0x01}
	resp = append(resp, atqa...)
	resp = append(resp, sak, byte(len(uid)))
	return append(resp, uid...)
}

// BuildNoTagResponse returns an empty InListPassiveTarget response.
func BuildNoTagResponse() []byte {
	return []byte{0x4B, 0x00}
}

// BuildDataExchangeResponse returns a successful InDataExchange response.
func BuildDataExchangeResponse(data []byte) []byte {
	return append([]byte{0x41, 0x00}, data...)
}

// BuildErrorResponse returns cmd's response code with a failing status.
func BuildErrorResponse(cmd, status byte) []byte {
	return []byte{cmd + 1, status}
}

// Emulator answers PN532 commands for a VirtualTag, standing in for a real
// reader behind a mock transport.
type Emulator struct {
	Tag *VirtualTag
}

// Handle implements the mock transport handler signature.
func (e *Emulator) Handle(cmd byte, args []byte) ([]byte, error) {
	switch cmd {
	case CmdGetFirmwareVersion:
		return BuildFirmwareVersionResponse(), nil
	case CmdSAMConfiguration:
		return BuildSAMConfigurationResponse(), nil
	case CmdRFConfiguration:
		return BuildRFConfigurationResponse(), nil
	case CmdInRelease:
		return []byte{0x53, 0x00}, nil
	case CmdInListPassiveTarget:
		if e.Tag == nil || !e.Tag.Present() {
			return BuildNoTagResponse(), nil
		}
		return BuildTagDetectionResponse("NTAG213", e.Tag.UID()), nil
	case CmdInDataExchange:
		return e.exchange(args), nil
	default:
		return nil, fmt.Errorf("emulator: unsupported command 0x%02X", cmd)
	}
}

// exchange handles NTAG READ (0x30) and WRITE (0xA2). Failures map to
// status 0x01 (target timeout) like a tag that left the field.
func (e *Emulator) exchange(args []byte) []byte {
	const statusTimeout = 0x01
	if e.Tag == nil || len(args) < 3 {
		return BuildErrorResponse(CmdInDataExchange, statusTimeout)
	}
	page := args[2]
	switch args[1] {
	case 0x30:
		data, err := e.Tag.ReadPages(page)
		if err != nil {
			return BuildErrorResponse(CmdInDataExchange, statusTimeout)
		}
		return BuildDataExchangeResponse(data)
	case 0xA2:
		if err := e.Tag.WritePage(page, args[3:]); err != nil {
			return BuildErrorResponse(CmdInDataExchange, statusTimeout)
		}
		return BuildDataExchangeResponse(nil)
	default:
		return BuildErrorResponse(CmdInDataExchange, 0x27)
	}
}

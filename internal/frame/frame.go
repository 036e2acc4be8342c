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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrIncomplete       = errors.New("frame incomplete")
	ErrNoStartCode      = errors.New("frame start code not found")
	ErrLengthChecksum   = errors.New("frame length checksum mismatch")
	ErrDataChecksum     = errors.New("frame data checksum mismatch")
	ErrUnexpectedTFI    = errors.New("unexpected frame identifier")
	ErrApplicationError = errors.New("pn532 reported a syntax error frame")
	ErrPayloadTooLarge  = errors.New("frame payload too large")
	ErrAckFrame         = errors.New("ack frame where response was expected")
)

// CalculateChecksum returns the 8-bit sum of data.
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ValidateChecksum reports whether data fails the zero-sum check, i.e.
// true means the frame should be rejected.
func ValidateChecksum(data []byte) bool {
	return CalculateChecksum(data) != 0
}

// CalculateDataChecksum returns the DCS byte for a frame body.
func CalculateDataChecksum(tfi byte, data []byte) byte {
	return ^(tfi + CalculateChecksum(data)) + 1
}

// CalculateLengthChecksum returns the LCS byte for a frame length.
func CalculateLengthChecksum(length byte) byte {
	return ^length + 1
}

// Build encodes a host command as a normal information frame.
func Build(cmd byte, args []byte) ([]byte, error) {
	body := make([]byte, 0, len(args)+1)
	body = append(body, cmd)
	body = append(body, args...)

	// +1 for the TFI
	if len(body)+1 > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(body)+1)
	}
	length := byte(len(body) + 1)

	out := make([]byte, 0, len(body)+8)
	out = append(out, Preamble, StartCode1, StartCode2, length, CalculateLengthChecksum(length), HostToPn532)
	out = append(out, body...)
	out = append(out, CalculateDataChecksum(HostToPn532, body), Postamble)
	return out, nil
}

// IsAck reports whether buf contains an ACK frame.
func IsAck(buf []byte) bool {
	return bytes.Contains(buf, AckFrame)
}

// Parse decodes the first PN532-to-host frame found in buf. It returns the
// frame body after the TFI (response code followed by data) and the number
// of bytes of buf consumed. ErrIncomplete means more bytes are needed.
func Parse(buf []byte) (data []byte, consumed int, err error) {
	start := findStart(buf)
	if start < 0 {
		return nil, 0, ErrNoStartCode
	}
	// start points at 0x00 0xFF; LEN and LCS follow.
	if len(buf) < start+4 {
		return nil, 0, ErrIncomplete
	}
	length := buf[start+2]
	lcs := buf[start+3]
	if length == 0x00 && lcs == 0xFF {
		return nil, start + 5, ErrAckFrame
	}
	if length == 0 || length+lcs != 0 {
		return nil, start + 4, ErrLengthChecksum
	}

	bodyStart := start + 4
	bodyEnd := bodyStart + int(length)
	if len(buf) < bodyEnd+1 {
		return nil, 0, ErrIncomplete
	}
	body := buf[bodyStart:bodyEnd]
	consumed = bodyEnd + 1
	if consumed < len(buf) && buf[consumed] == Postamble {
		consumed++
	}

	if ValidateChecksum(append(body[:len(body):len(body)], buf[bodyEnd])) {
		return nil, consumed, ErrDataChecksum
	}
	switch body[0] {
	case Pn532ToHost:
	case ErrorTFI:
		return nil, consumed, ErrApplicationError
	default:
		return nil, consumed, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, body[0])
	}

	out := make([]byte, len(body)-1)
	copy(out, body[1:])
	return out, consumed, nil
}

func findStart(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i
		}
	}
	return -1
}

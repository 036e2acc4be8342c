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
)

const (
	ntagPageSize = 4
	ntagReadSize = 16
)

// NTAGRead reads four pages (16 bytes) starting at page. Reads past the
// last page wrap to page 0 on the tag.
func (d *Device) NTAGRead(ctx context.Context, target, page byte) ([]byte, error) {
	resp, err := d.InDataExchange(ctx, target, []byte{ntagCmdRead, page})
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	if len(resp) < ntagReadSize {
		return nil, fmt.Errorf("%w: read page %d returned %d bytes", ErrInvalidResponse, page, len(resp))
	}
	return resp[:ntagReadSize], nil
}

// NTAGWrite writes exactly one 4-byte page.
func (d *Device) NTAGWrite(ctx context.Context, target, page byte, data []byte) error {
	if len(data) != ntagPageSize {
		return fmt.Errorf("%w: page write needs %d bytes, got %d", ErrInvalidParameter, ntagPageSize, len(data))
	}
	cmd := make([]byte, 0, 2+ntagPageSize)
	cmd = append(cmd, ntagCmdWrite, page)
	cmd = append(cmd, data...)
	if _, err := d.InDataExchange(ctx, target, cmd); err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	return nil
}

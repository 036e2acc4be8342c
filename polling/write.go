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

package polling

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-jukebox"
)

// Write stores payload on the tag in the field as four pages starting at
// the configured page. The length is checked before the reader is touched.
// Each page is read once before it is written; read failures are only
// logged. Write failures of all pages are joined into the result.
func (e *Engine) Write(ctx context.Context, payload []byte) error {
	data, err := jukebox.ParsePayload(payload)
	if err != nil {
		e.logger.Warn("illegal payload length", "got", len(payload), "want", jukebox.PayloadSize)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.writeLocked(ctx, data)
	e.writes.Add(1)
	if err != nil {
		e.writeErrors.Add(1)
		e.logger.Error("tag write failed", "data", data, "error", err)
		return err
	}
	e.logger.Info("wrote tag data", "data", data)
	return nil
}

func (e *Engine) writeLocked(ctx context.Context, payload jukebox.Payload) error {
	session, err := e.reader.Open(ctx)
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Debug("failed to close reader session", "error", cerr)
		}
	}()

	if err := session.Probe(ctx); err != nil {
		return fmt.Errorf("probe tag: %w", err)
	}
	uid, err := session.ReadUID(ctx)
	if err != nil {
		return fmt.Errorf("read tag UID: %w", err)
	}
	e.logger.Debug("writing tag", "uid", uid)

	var errs []error
	for i := range jukebox.PayloadSize / jukebox.PageSize {
		page := e.config.Page + uint8(i)
		block := make([]byte, jukebox.PayloadSize)
		copy(block, payload[i*jukebox.PageSize:(i+1)*jukebox.PageSize])

		if _, err := session.ReadBlock(ctx, page); err != nil {
			e.logger.Warn("failed to read page before writing", "page", page, "error", err)
		}
		if err := session.WriteBlock(ctx, page, block); err != nil {
			e.logger.Error("failed to write page", "page", page, "data", payload, "error", err)
			errs = append(errs, fmt.Errorf("write page %d: %w", page, err))
		}
	}
	return errors.Join(errs...)
}

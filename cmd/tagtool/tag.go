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
	"io"
	"log/slog"
	"time"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
	"github.com/ZaparooProject/go-jukebox/polling"
)

const waitInterval = 250 * time.Millisecond

type tagInfo struct {
	UID     jukebox.UID
	Payload jukebox.Payload
}

// payloadFor treats arg as 32 hex digits when it parses as a payload and as
// a music file name otherwise.
func payloadFor(arg string) jukebox.Payload {
	if p, err := jukebox.ParsePayloadHex(arg); err == nil {
		return p
	}
	return jukebox.MusicFileKey(arg)
}

// readTag reads the UID and the payload block at page in one session.
func readTag(ctx context.Context, reader jukebox.Reader, page uint8) (tagInfo, error) {
	session, err := reader.Open(ctx)
	if err != nil {
		return tagInfo{}, err
	}
	defer func() { _ = session.Close() }()

	if err := session.Probe(ctx); err != nil {
		return tagInfo{}, err
	}
	uid, err := session.ReadUID(ctx)
	if err != nil {
		return tagInfo{}, fmt.Errorf("read UID: %w", err)
	}
	block, err := session.ReadBlock(ctx, page)
	if err != nil {
		return tagInfo{}, fmt.Errorf("read page %d: %w", page, err)
	}
	payload, err := jukebox.ParsePayload(block[:min(len(block), jukebox.PayloadSize)])
	if err != nil {
		return tagInfo{}, err
	}
	return tagInfo{UID: uid, Payload: payload}, nil
}

// waitForTag retries readTag while the field is empty, for at most wait.
func waitForTag(ctx context.Context, reader jukebox.Reader, page uint8, wait time.Duration) (tagInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(waitInterval)
	defer ticker.Stop()
	for {
		tag, err := readTag(ctx, reader, page)
		if !errors.Is(err, jukebox.ErrNoTag) {
			return tag, err
		}
		select {
		case <-ctx.Done():
			return tagInfo{}, fmt.Errorf("no tag within %s: %w", wait, jukebox.ErrNoTag)
		case <-ticker.C:
		}
	}
}

// writeTag goes through the engine's write path so tags written here match
// the ones written from the web interface.
func writeTag(ctx context.Context, reader jukebox.Reader, logger *slog.Logger, page uint8, payload jukebox.Payload) error {
	engine := polling.New(reader, nil, nil, &polling.Config{Logger: logger, Page: page}, polling.Callbacks{})
	if err := engine.Write(ctx, payload[:]); err != nil {
		return err
	}
	got, err := readTag(ctx, reader, page)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if got.Payload != payload {
		return fmt.Errorf("verify: read back %s", got.Payload)
	}
	return nil
}

func inspectTag(ctx context.Context, w io.Writer, reader jukebox.Reader, page uint8) error {
	session, err := reader.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	if err := session.Probe(ctx); err != nil {
		return err
	}
	mem, err := readUserMemory(ctx, session)
	if err != nil {
		return err
	}

	info, err := parseNDEF(mem)
	switch {
	case errors.Is(err, errNoNDEF):
		_, _ = fmt.Fprintln(w, "NDEF: none")
		return nil
	case err != nil:
		return err
	}

	_, _ = fmt.Fprintf(w, "NDEF: %d bytes, pages %d-%d\n", info.Length, info.FirstPage, info.LastPage)
	if info.Message != nil {
		for i, rec := range info.Message.Records {
			_, _ = fmt.Fprintf(w, "  record %d: tnf=%d type=%q\n", i, rec.TNF(), rec.Type())
		}
	}
	if info.Overlaps(page) {
		_, _ = fmt.Fprintf(w, "warning: NDEF data overlaps the jukebox payload at page %d\n", page)
	}
	return nil
}

func printTag(w io.Writer, tag tagInfo) {
	_, _ = fmt.Fprintf(w, "uid:  %s\n", tag.UID)
	_, _ = fmt.Fprintf(w, "data: %s\n", tag.Payload)
	switch cmd := jukebox.DecodePayload(tag.Payload).(type) {
	case jukebox.PlayMusic:
		_, _ = fmt.Fprintln(w, "kind: music file key")
	case jukebox.UnknownCommand:
		_, _ = fmt.Fprintf(w, "kind: unknown control byte 0x%02x\n", cmd.Control)
	}
}

func printDevices(w io.Writer, devices []detection.DeviceInfo) {
	for _, d := range devices {
		_, _ = fmt.Fprintf(w, "%-5s %-24s %-8s %s\n", d.Transport, d.Path, d.Confidence, d.Name)
	}
}

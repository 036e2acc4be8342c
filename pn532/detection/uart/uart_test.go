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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func testPorts() ([]*enumerator.PortDetails, error) {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1366", PID: "0105"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1234", PID: "5678"},
		{Name: "/dev/ttyAMA0"},
	}, nil
}

func TestDetect_Passive(t *testing.T) {
	t.Parallel()

	probed := 0
	d := &detector{list: testPorts, probe: func(context.Context, string) (*pn532.FirmwareVersion, error) {
		probed++
		return nil, errors.New("unexpected probe")
	}}
	opts := detection.DefaultOptions()

	got, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/dev/ttyUSB0", got[0].Path)
	assert.Equal(t, detection.Medium, got[0].Confidence)
	assert.Equal(t, "CH340", got[0].Metadata["bridge"])
	assert.Equal(t, "/dev/ttyUSB1", got[1].Path)
	assert.Equal(t, detection.Low, got[1].Confidence)
	assert.Zero(t, probed)
}

func TestDetect_SafeProbesKnownBridges(t *testing.T) {
	t.Parallel()

	var probedPaths []string
	d := &detector{list: testPorts, probe: func(_ context.Context, path string) (*pn532.FirmwareVersion, error) {
		probedPaths = append(probedPaths, path)
		return &pn532.FirmwareVersion{Version: "1.6", IC: 0x32}, nil
	}}
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe

	got, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, probedPaths)
	assert.Equal(t, detection.High, got[0].Confidence)
	assert.Equal(t, "1.6", got[0].Metadata["firmware"])
}

func TestDetect_FullIncludesOnboardUART(t *testing.T) {
	t.Parallel()

	d := &detector{list: testPorts, probe: func(context.Context, string) (*pn532.FirmwareVersion, error) {
		return nil, pn532.ErrNoACK
	}}
	opts := detection.DefaultOptions()
	opts.Mode = detection.Full

	got, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "/dev/ttyAMA0", got[2].Path)
	assert.Contains(t, got[2].Metadata["probe_error"], "ACK")
}

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

//go:build linux

package i2c

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZaparooProject/go-jukebox/pn532/detection"
	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl from linux/i2c-dev.h.
const i2cSlave = 0x0703

func newDetector() *detector {
	return &detector{buses: listBuses, probe: probeAddress}
}

func listBuses() ([]string, error) {
	paths, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// probeAddress reads the PN532 status byte. Any completed read means a
// device acknowledged the address.
func probeAddress(path string, addr uint16) bool {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		return false
	}
	status := make([]byte, 1)
	n, err := unix.Read(fd, status)
	return err == nil && n == 1
}

// Detect lists buses in Passive mode and probes address 0x24 otherwise.
// The reported Path is the bus number, which periph's i2creg accepts.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts.Mode == detection.Passive {
		return nil, nil
	}
	buses, err := d.buses()
	if err != nil {
		return nil, err
	}

	var out []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			break
		}
		if detection.IsPathIgnored(bus, opts.IgnorePaths) || !d.probe(bus, DefaultAddress) {
			continue
		}
		out = append(out, detection.DeviceInfo{
			Transport:  "i2c",
			Path:       strings.TrimPrefix(bus, "/dev/i2c-"),
			Name:       "PN532 on " + bus,
			Confidence: detection.Medium,
			Metadata:   map[string]string{"device": bus, "address": "0x24"},
		})
	}
	return out, nil
}

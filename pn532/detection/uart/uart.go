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

// Package uart finds PN532 readers behind serial ports. Importing it
// registers the detector.
package uart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
	uarttransport "github.com/ZaparooProject/go-jukebox/pn532/transport/uart"
	"go.bug.st/serial/enumerator"
)

// knownBridges are USB-serial chips PN532 boards ship with.
var knownBridges = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"067B:2303": "PL2303",
}

type detector struct {
	list  func() ([]*enumerator.PortDetails, error)
	probe func(ctx context.Context, path string) (*pn532.FirmwareVersion, error)
}

func init() {
	detection.RegisterDetector(New())
}

// New returns a detector backed by the system serial port list.
func New() detection.Detector {
	return &detector{list: enumerator.GetDetailedPortsList, probe: probeFirmware}
}

func (*detector) Transport() string {
	return "uart"
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var out []detection.DeviceInfo
	for _, p := range ports {
		if ctx.Err() != nil {
			break
		}
		info, ok := d.classify(p, opts)
		if !ok {
			continue
		}
		if opts.Mode == detection.Full || (opts.Mode == detection.Safe && info.Confidence >= detection.Medium) {
			if fw, err := d.probe(ctx, p.Name); err == nil {
				info.Confidence = detection.High
				info.Metadata["firmware"] = fw.Version
			} else {
				info.Metadata["probe_error"] = err.Error()
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func (*detector) classify(p *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	info := detection.DeviceInfo{
		Transport:  "uart",
		Path:       p.Name,
		Name:       p.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if !p.IsUSB {
		// Onboard UARTs (HAT readers) are only worth probing in Full mode.
		return info, opts.Mode == detection.Full
	}
	if detection.IsBlocked(p.VID, p.PID, opts.Blocklist) {
		return info, false
	}
	info.Metadata["vid"] = p.VID
	info.Metadata["pid"] = p.PID
	if p.SerialNumber != "" {
		info.Metadata["serial"] = p.SerialNumber
	}
	if p.Product != "" {
		info.Name = p.Product
	}
	if bridge, ok := knownBridges[strings.ToUpper(p.VID+":"+p.PID)]; ok {
		info.Confidence = detection.Medium
		info.Metadata["bridge"] = bridge
	}
	return info, true
}

func probeFirmware(ctx context.Context, path string) (*pn532.FirmwareVersion, error) {
	tr, err := uarttransport.New(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tr.Close() }()

	device, err := pn532.New(tr)
	if err != nil {
		return nil, err
	}
	return device.GetFirmwareVersion(ctx)
}

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

// Package i2c finds PN532 readers on Linux I2C buses. Importing it
// registers the detector.
package i2c

import (
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
)

// DefaultAddress is the PN532's 7-bit I2C address.
const DefaultAddress = 0x24

type detector struct {
	buses func() ([]string, error)
	probe func(path string, addr uint16) bool
}

func init() {
	detection.RegisterDetector(New())
}

// New returns the platform detector.
func New() detection.Detector {
	return newDetector()
}

func (*detector) Transport() string {
	return "i2c"
}

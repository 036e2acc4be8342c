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

/*
Package pn532 drives an NXP PN532 reader over UART, I2C or SPI and exposes
it to the jukebox as a jukebox.Reader.

Only what the player needs is implemented: firmware query, SAM and RF
configuration, passive target listing for ISO14443A, InDataExchange for
NTAG21x READ and WRITE, and InRelease.

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    return err
	}
	device, err := pn532.New(transport, pn532.WithTimeout(time.Second))
	if err != nil {
	    return err
	}
	if err := device.InitContext(ctx); err != nil {
	    return err
	}
	reader := pn532.NewReader(device)

Transports live in the transport subpackages; detection helps find a
connected reader.
*/
package pn532

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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist lists USB VID:PID pairs never probed. Debug probes and
// modems answer badly to unexpected wakeup bytes.
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link
		"2E8A:000A", // Raspberry Pi Pico serial
	}
}

// IsBlocked reports whether vid:pid is on blocklist. Comparison ignores
// case and surrounding space.
func IsBlocked(vid, pid string, blocklist []string) bool {
	if vid == "" || pid == "" {
		return false
	}
	key := strings.ToUpper(strings.TrimSpace(vid) + ":" + strings.TrimSpace(pid))
	for _, blocked := range blocklist {
		if strings.ToUpper(strings.TrimSpace(blocked)) == key {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning. Matching is case-insensitive.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	want := strings.ToLower(filepath.Clean(devicePath))
	for _, p := range ignorePaths {
		if p != "" && strings.ToLower(filepath.Clean(p)) == want {
			return true
		}
	}
	return false
}

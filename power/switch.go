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

package power

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrEmptyCommand = errors.New("empty network disable command")

// DefaultCommand takes the wireless interface down.
var DefaultCommand = []string{"sudo", "ifdown", "wlan0"}

// CommandSwitch runs an external command to disable the network.
type CommandSwitch struct {
	Args []string
}

// NewCommandSwitch returns a switch running args, or DefaultCommand when
// args is empty.
func NewCommandSwitch(args []string) *CommandSwitch {
	if len(args) == 0 {
		args = DefaultCommand
	}
	return &CommandSwitch{Args: args}
}

func (s *CommandSwitch) Disable(ctx context.Context) error {
	if len(s.Args) == 0 {
		return ErrEmptyCommand
	}
	//nolint:gosec // command comes from operator configuration
	out, err := exec.CommandContext(ctx, s.Args[0], s.Args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(s.Args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NopSwitch leaves the network alone.
type NopSwitch struct{}

func (NopSwitch) Disable(context.Context) error {
	return nil
}

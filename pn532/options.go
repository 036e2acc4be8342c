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

import "time"

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithTimeout sets the per-command timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithPassiveActivationRetries overrides MxRtyPassiveActivation.
func WithPassiveActivationRetries(retries byte) Option {
	return func(d *Device) error {
		d.config.PassiveActivationRetries = retries
		return nil
	}
}

// WithRetry wraps the transport so retryable failures are repeated.
func WithRetry(config RetryConfig) Option {
	return func(d *Device) error {
		d.transport = NewTransportWithRetry(d.transport, config)
		return nil
	}
}

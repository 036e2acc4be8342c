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

// Package hw opens the PN532 reader named in the configuration, or the
// first one auto-detection finds.
package hw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
	_ "github.com/ZaparooProject/go-jukebox/pn532/detection/i2c"  // registers the I2C detector
	_ "github.com/ZaparooProject/go-jukebox/pn532/detection/uart" // registers the UART detector
	"github.com/ZaparooProject/go-jukebox/pn532/transport/i2c"
	"github.com/ZaparooProject/go-jukebox/pn532/transport/spi"
	"github.com/ZaparooProject/go-jukebox/pn532/transport/uart"
)

// ErrUnsupportedTransport is returned for an unknown transport name.
var ErrUnsupportedTransport = errors.New("unsupported transport")

// Options selects and tunes the reader.
type Options struct {
	Logger *slog.Logger
	// Transport is auto, uart, i2c or spi.
	Transport string
	// Device is the port, bus or SPI port name.
	Device         string
	CommandTimeout time.Duration
	Retries        int
	// DetectMode is used when neither transport nor device is given.
	DetectMode detection.Mode
}

// OpenDevice opens and initialises the reader. The returned device owns the
// transport; Close it when done.
func OpenDevice(ctx context.Context, opts Options) (*pn532.Device, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kind, path := opts.Transport, opts.Device
	if kind == "" {
		kind = "auto"
	}
	if kind == "auto" && path == "" {
		dev, err := detectFirst(ctx, opts.DetectMode)
		if err != nil {
			return nil, err
		}
		logger.Info("detected reader", "transport", dev.Transport, "path", dev.Path,
			"name", dev.Name, "confidence", dev.Confidence)
		kind, path = dev.Transport, dev.Path
	}

	transport, err := NewTransport(kind, path)
	if err != nil {
		return nil, err
	}

	pnOpts := []pn532.Option{}
	if opts.CommandTimeout > 0 {
		pnOpts = append(pnOpts, pn532.WithTimeout(opts.CommandTimeout))
	}
	if opts.Retries > 0 {
		retry := pn532.DefaultRetryConfig()
		retry.MaxRetries = opts.Retries
		pnOpts = append(pnOpts, pn532.WithRetry(retry))
	}
	device, err := pn532.New(transport, pnOpts...)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	if err := device.InitContext(ctx); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("initialise reader on %s: %w", path, err)
	}
	logger.Info("reader ready", "transport", transport.Type(), "path", path)
	return device, nil
}

// NewTransport opens path over kind. With kind auto the transport is
// guessed from the path.
func NewTransport(kind, path string) (pn532.Transport, error) {
	if kind == "auto" || kind == "" {
		kind = GuessTransport(path)
	}

	switch kind {
	case "uart":
		if path == "" {
			return nil, fmt.Errorf("%w: uart needs a port", pn532.ErrInvalidParameter)
		}
		t, err := uart.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return t, nil
	case "i2c":
		t, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return t, nil
	case "spi":
		t, err := spi.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, kind)
	}
}

// GuessTransport infers the transport from a device path.
func GuessTransport(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "i2c"):
		return "i2c"
	case strings.Contains(lower, "spi"):
		return "spi"
	default:
		return "uart"
	}
}

// Detect lists candidate readers, best first.
func Detect(ctx context.Context, mode detection.Mode) ([]detection.DeviceInfo, error) {
	opts := detection.DefaultOptions()
	opts.Mode = mode
	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("detect readers: %w", err)
	}
	return devices, nil
}

func detectFirst(ctx context.Context, mode detection.Mode) (detection.DeviceInfo, error) {
	devices, err := Detect(ctx, mode)
	if err != nil {
		return detection.DeviceInfo{}, err
	}
	return devices[0], nil
}

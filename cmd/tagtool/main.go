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

// Command tagtool reads, writes and inspects jukebox tags without running
// the daemon.
//
//	tagtool [flags] read
//	tagtool [flags] write <music file name | 32 hex digits>
//	tagtool [flags] inspect
//	tagtool [flags] detect
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/internal/hw"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/ZaparooProject/go-jukebox/pn532/detection"
)

var errUsage = errors.New("usage")

type options struct {
	device    string
	transport string
	timeout   time.Duration
	wait      time.Duration
	page      uint8
	debug     bool
	full      bool
}

func main() {
	opts := &options{}
	fs := flag.NewFlagSet("tagtool", flag.ContinueOnError)
	fs.StringVarP(&opts.device, "device", "d", "", "reader device path; empty auto-detects")
	fs.StringVarP(&opts.transport, "transport", "t", "auto", "reader transport: auto, uart, i2c or spi")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Second, "timeout of each reader call")
	fs.DurationVarP(&opts.wait, "wait", "w", 10*time.Second, "how long to wait for a tag")
	fs.Uint8Var(&opts.page, "page", jukebox.DefaultPage, "first page of the jukebox payload")
	fs.BoolVar(&opts.debug, "debug", false, "log reader traffic")
	fs.BoolVar(&opts.full, "full", false, "detect: probe every candidate port")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "usage: tagtool [flags] read | write <name|hex> | inspect | detect")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if opts.debug {
		pn532.SetLogger(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, logger, opts, fs.Args())
	stop()
	if errors.Is(err, errUsage) {
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "tagtool: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, logger *slog.Logger, opts *options, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	if args[0] == "detect" {
		mode := detection.Safe
		if opts.full {
			mode = detection.Full
		}
		devices, err := hw.Detect(ctx, mode)
		if err != nil {
			return err
		}
		printDevices(w, devices)
		return nil
	}

	var payload jukebox.Payload
	switch args[0] {
	case "read", "inspect":
		if len(args) != 1 {
			return errUsage
		}
	case "write":
		if len(args) != 2 {
			return errUsage
		}
		payload = payloadFor(args[1])
	default:
		return errUsage
	}

	device, err := hw.OpenDevice(ctx, hw.Options{
		Logger:    logger,
		Transport: opts.transport,
		Device:    opts.device,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			logger.Warn("failed to close reader", "error", err)
		}
	}()
	if fw, err := device.GetFirmwareVersion(ctx); err == nil {
		logger.Debug("reader firmware", "version", fw.Version)
	}
	reader := jukebox.WithTimeout(pn532.NewReader(device), opts.timeout)

	return runCommand(ctx, w, logger, reader, opts, args[0], payload)
}

// runCommand runs read, write or inspect against reader once a tag shows up.
func runCommand(ctx context.Context, w io.Writer, logger *slog.Logger, reader jukebox.Reader,
	opts *options, cmd string, payload jukebox.Payload,
) error {
	switch cmd {
	case "read":
		tag, err := waitForTag(ctx, reader, opts.page, opts.wait)
		if err != nil {
			return err
		}
		printTag(w, tag)
		return nil
	case "write":
		if _, err := waitForTag(ctx, reader, opts.page, opts.wait); err != nil {
			return err
		}
		if err := writeTag(ctx, reader, logger, opts.page, payload); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "wrote %s at page %d\n", payload, opts.page)
		return nil
	case "inspect":
		if _, err := waitForTag(ctx, reader, opts.page, opts.wait); err != nil {
			return err
		}
		return inspectTag(ctx, w, reader, opts.page)
	default:
		return errUsage
	}
}

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

// Package i2c talks to a PN532 on an I2C bus through periph.io.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-jukebox/internal/frame"
	"github.com/ZaparooProject/go-jukebox/internal/retry"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Address is the PN532's 7-bit I2C address.
	Address = 0x24

	statusReady    = 0x01
	maxClockFreq   = 400 * physic.KiloHertz
	defaultTimeout = time.Second
	ackTimeout     = 50 * time.Millisecond
	pollInterval   = 2 * time.Millisecond
	// responseRead covers the longest response the reader asks for
	// (a 16-byte NTAG READ) with room to spare. Every I2C read starts over
	// at the status byte, so the whole frame must arrive in one transfer.
	responseRead = 64
)

// Transport implements pn532.TransportContext over I2C.
type Transport struct {
	dev     conn.Conn
	bus     i2c.BusCloser
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

var _ pn532.TransportContext = (*Transport)(nil)

// New opens busName ("" for the first bus) and addresses the PN532.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, pn532.NewTransportError("open", busName, err, pn532.ErrorTypePermanent)
	}
	// Not every adapter supports speed changes; the default still works.
	_ = bus.SetSpeed(maxClockFreq)

	t := NewWithConn(&i2c.Dev{Addr: Address, Bus: bus}, busName)
	t.bus = bus
	return t, nil
}

// NewWithConn uses an already addressed connection.
func NewWithConn(dev conn.Conn, name string) *Transport {
	return &Transport{dev: dev, busName: name, timeout: defaultTimeout}
}

func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, pn532.NewTransportNotReadyError("send", t.busName)
	}

	pkt, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewDataTooLargeError("send", t.busName)
	}
	if err := t.dev.Tx(pkt, nil); err != nil {
		return nil, pn532.NewTransportError("write", t.busName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}

	if err := t.waitReady(ctx, ackTimeout); err != nil {
		return nil, pn532.NewNoACKError("ack", t.busName)
	}
	ack := make([]byte, 1+len(frame.AckFrame))
	if err := t.dev.Tx(nil, ack); err != nil {
		return nil, pn532.NewTransportError("read ack", t.busName, errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	if !frame.IsAck(ack[1:]) {
		return nil, pn532.NewNoACKError("ack", t.busName)
	}

	if err := t.waitReady(ctx, t.timeout); err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return nil, pn532.NewTimeoutError("read", t.busName)
		}
		return nil, err
	}
	buf := make([]byte, 1+responseRead)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, pn532.NewTransportError("read", t.busName, errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	data, _, err := frame.Parse(buf[1:])
	if err != nil {
		return nil, pn532.NewTransportError("read", t.busName,
			fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
	}
	return data, nil
}

// waitReady polls the status byte until the PN532 has data.
func (t *Transport) waitReady(ctx context.Context, timeout time.Duration) error {
	_, err := retry.Poll(ctx, timeout, pollInterval, func(context.Context) (struct{}, bool, error) {
		status := make([]byte, 1)
		if err := t.dev.Tx(nil, status); err != nil {
			// A busy PN532 may NAK its address; keep polling.
			return struct{}{}, true, nil
		}
		return struct{}{}, status[0]&statusReady == 0, nil
	})
	return err
}

func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout %s", pn532.ErrInvalidParameter, timeout)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	if t.bus == nil {
		return nil
	}
	err := t.bus.Close()
	t.bus = nil
	return err
}

func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

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

// Package spi talks to a PN532 on an SPI bus through periph.io. The PN532
// shifts bits LSB first; the bus runs MSB first, so every byte is reversed
// on the way in and out.
package spi

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/ZaparooProject/go-jukebox/internal/frame"
	"github.com/ZaparooProject/go-jukebox/internal/retry"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPI operation prefixes.
const (
	opStatusRead = 0x02
	opDataWrite  = 0x01
	opDataRead   = 0x03
)

const (
	statusReady    = 0x01
	clockFreq      = 1 * physic.MegaHertz
	defaultTimeout = time.Second
	ackTimeout     = 50 * time.Millisecond
	pollInterval   = 2 * time.Millisecond
	responseRead   = 64
)

// Transport implements pn532.TransportContext over SPI.
type Transport struct {
	dev     conn.Conn
	port    spi.PortCloser
	name    string
	timeout time.Duration
	mu      sync.Mutex
}

var _ pn532.TransportContext = (*Transport)(nil)

// New opens the SPI port name ("" for the first) in mode 0 at 1 MHz.
func New(name string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, pn532.NewTransportError("open", name, err, pn532.ErrorTypePermanent)
	}
	c, err := port.Connect(clockFreq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, pn532.NewTransportError("connect", name, err, pn532.ErrorTypePermanent)
	}
	t := NewWithConn(c, name)
	t.port = port
	return t, nil
}

// NewWithConn uses an already configured connection.
func NewWithConn(dev conn.Conn, name string) *Transport {
	return &Transport{dev: dev, name: name, timeout: defaultTimeout}
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[i] = bits.Reverse8(v)
	}
	return out
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
		return nil, pn532.NewTransportNotReadyError("send", t.name)
	}

	pkt, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewDataTooLargeError("send", t.name)
	}
	if err := t.dev.Tx(reverse(append([]byte{opDataWrite}, pkt...)), nil); err != nil {
		return nil, pn532.NewTransportError("write", t.name, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}

	if err := t.waitReady(ctx, ackTimeout); err != nil {
		return nil, pn532.NewNoACKError("ack", t.name)
	}
	ack, err := t.read(len(frame.AckFrame))
	if err != nil {
		return nil, err
	}
	if !frame.IsAck(ack) {
		return nil, pn532.NewNoACKError("ack", t.name)
	}

	if err := t.waitReady(ctx, t.timeout); err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return nil, pn532.NewTimeoutError("read", t.name)
		}
		return nil, err
	}
	buf, err := t.read(responseRead)
	if err != nil {
		return nil, err
	}
	data, _, err := frame.Parse(buf)
	if err != nil {
		return nil, pn532.NewTransportError("read", t.name,
			fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
	}
	return data, nil
}

func (t *Transport) read(n int) ([]byte, error) {
	w := make([]byte, n+1)
	w[0] = bits.Reverse8(opDataRead)
	r := make([]byte, n+1)
	if err := t.dev.Tx(w, r); err != nil {
		return nil, pn532.NewTransportError("read", t.name, errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	return reverse(r[1:]), nil
}

func (t *Transport) waitReady(ctx context.Context, timeout time.Duration) error {
	w := []byte{bits.Reverse8(opStatusRead), 0x00}
	_, err := retry.Poll(ctx, timeout, pollInterval, func(context.Context) (struct{}, bool, error) {
		r := make([]byte, len(w))
		if err := t.dev.Tx(w, r); err != nil {
			return struct{}{}, false, pn532.NewTransportError("status", t.name, err, pn532.ErrorTypeTransient)
		}
		return struct{}{}, bits.Reverse8(r[1])&statusReady == 0, nil
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
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

func (*Transport) Type() pn532.TransportType {
	return pn532.TransportSPI
}

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

// Package uart talks to a PN532 in HSU mode over a serial port.
package uart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-jukebox/internal/frame"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"go.bug.st/serial"
)

const (
	baudRate        = 115200
	defaultTimeout  = time.Second
	ackTimeout      = 100 * time.Millisecond
	readSlice       = 20 * time.Millisecond
	readChunkLength = 64
)

// wakeup brings the PN532 out of low-VBAT mode: 0x55 0x55 followed by
// enough idle bytes for the oscillator to settle.
var wakeup = append([]byte{0x55, 0x55}, make([]byte, 14)...)

// port is the subset of serial.Port the transport uses.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements pn532.TransportContext over a serial port.
type Transport struct {
	port     port
	portName string
	timeout  time.Duration
	mu       sync.Mutex
	awake    bool
}

var _ pn532.TransportContext = (*Transport)(nil)

// New opens portName at 115200 8N1.
func New(portName string) (*Transport, error) {
	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, pn532.NewTransportError("open", portName, err, pn532.ErrorTypePermanent)
	}
	return newTransport(p, portName), nil
}

func newTransport(p port, name string) *Transport {
	return &Transport{port: p, portName: name, timeout: defaultTimeout}
}

func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext writes one command frame, waits for the ACK and reads
// the response frame. ctx is checked between reads.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, pn532.NewTransportNotReadyError("send", t.portName)
	}

	pkt, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewDataTooLargeError("send", t.portName)
	}

	if !t.awake {
		if _, err := t.port.Write(wakeup); err != nil {
			return nil, pn532.NewTransportError("wakeup", t.portName, err, pn532.ErrorTypeTransient)
		}
		t.awake = true
	}
	// Stale bytes from an abandoned exchange would be parsed as our reply.
	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, pn532.NewTransportError("flush", t.portName, err, pn532.ErrorTypeTransient)
	}
	if _, err := t.port.Write(pkt); err != nil {
		t.awake = false
		return nil, pn532.NewTransportError("write", t.portName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}

	rest, err := t.readAck(ctx)
	if err != nil {
		return nil, err
	}
	return t.readResponse(ctx, rest)
}

// readAck returns any bytes that followed the ACK frame.
func (t *Transport) readAck(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(ackTimeout)
	var buf []byte
	for {
		if i := bytes.Index(buf, frame.AckFrame); i >= 0 {
			return buf[i+len(frame.AckFrame):], nil
		}
		var err error
		buf, err = t.readMore(ctx, deadline, buf)
		if errors.Is(err, pn532.ErrTransportTimeout) {
			t.awake = false
			return nil, pn532.NewNoACKError("ack", t.portName)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (t *Transport) readResponse(ctx context.Context, buf []byte) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	for {
		data, _, err := frame.Parse(buf)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoStartCode):
		case errors.Is(err, frame.ErrApplicationError):
			return nil, pn532.NewTransportError("read", t.portName, err, pn532.ErrorTypePermanent)
		default:
			return nil, pn532.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
		}

		buf, err = t.readMore(ctx, deadline, buf)
		if err != nil {
			return nil, err
		}
	}
}

// readMore appends at least one byte to buf or fails once deadline passes.
func (t *Transport) readMore(ctx context.Context, deadline time.Time, buf []byte) ([]byte, error) {
	chunk := make([]byte, readChunkLength)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, pn532.NewTimeoutError("read", t.portName)
		}
		if err := t.port.SetReadTimeout(min(remaining, readSlice)); err != nil {
			return nil, pn532.NewTransportError("read", t.portName, err, pn532.ErrorTypeTransient)
		}
		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, pn532.NewTransportError("read", t.portName, errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		if n > 0 {
			return append(buf, chunk[:n]...), nil
		}
	}
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
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return pn532.NewTransportError("close", t.portName, err, pn532.ErrorTypePermanent)
	}
	return nil
}

func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

func (*Transport) Type() pn532.TransportType {
	return pn532.TransportUART
}

// PortName returns the serial device path.
func (t *Transport) PortName() string {
	return t.portName
}

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

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-jukebox/internal/retry"
)

// TransportType names a physical link to the PN532.
type TransportType string

const (
	TransportUART TransportType = "uart"
	TransportI2C  TransportType = "i2c"
	TransportSPI  TransportType = "spi"
	TransportMock TransportType = "mock"
)

// Transport exchanges one command frame with the PN532. SendCommand returns
// the response body after the frame identifier, starting with the response
// code (cmd+1).
type Transport interface {
	SendCommand(cmd byte, args []byte) ([]byte, error)
	Close() error
	SetTimeout(timeout time.Duration) error
	IsConnected() bool
	Type() TransportType
}

// TransportContext is implemented by transports that honour cancellation
// between the phases of a command exchange.
type TransportContext interface {
	Transport
	SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error)
}

type transportContextAdapter struct {
	Transport
}

func (t *transportContextAdapter) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}

	type result struct {
		err  error
		data []byte
	}
	done := make(chan result, 1)
	go func() {
		data, err := t.SendCommand(cmd, args)
		done <- result{err: err, data: data}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for command response: %w", ctx.Err())
	case res := <-done:
		return res.data, res.err
	}
}

// AsTransportContext returns t itself when it supports contexts, otherwise
// an adapter that abandons the call when ctx ends.
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}

// RetryConfig bounds TransportWithRetry.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryConfig retries twice, 10ms apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, Delay: 10 * time.Millisecond}
}

// TransportWithRetry repeats commands that fail with a retryable error.
// Every command the reader issues is idempotent, so repeating is safe.
type TransportWithRetry struct {
	TransportContext
	config RetryConfig
}

func NewTransportWithRetry(t Transport, config RetryConfig) *TransportWithRetry {
	return &TransportWithRetry{TransportContext: AsTransportContext(t), config: config}
}

func (t *TransportWithRetry) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

func (t *TransportWithRetry) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	var lastErr error
	resp, err := retry.Do(ctx, retry.Config{
		Description: fmt.Sprintf("command 0x%02X", cmd),
		MaxRetries:  t.config.MaxRetries,
		Delay:       t.config.Delay,
	}, func(ctx context.Context) ([]byte, bool, error) {
		resp, err := t.TransportContext.SendCommandContext(ctx, cmd, args)
		switch {
		case err == nil:
			return resp, false, nil
		case IsRetryable(err):
			lastErr = err
			debugf("retrying command 0x%02X after: %v", cmd, err)
			return nil, true, nil
		default:
			return nil, false, err
		}
	})
	if errors.Is(err, retry.ErrExhausted) && lastErr != nil {
		return nil, fmt.Errorf("%w: %w", err, lastErr)
	}
	return resp, err
}

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
	"sync"
	"time"
)

// MockCall records one SendCommand.
type MockCall struct {
	Args []byte
	Cmd  byte
}

// MockTransport answers commands from canned responses, a handler, or
// injected errors. It is safe for concurrent use.
type MockTransport struct {
	responses map[byte][]byte
	errs      map[byte]error
	handler   func(cmd byte, args []byte) ([]byte, error)
	calls     []MockCall
	timeout   time.Duration
	delay     time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport returns a connected mock with no responses.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errs:      make(map[byte]error),
		timeout:   time.Second,
	}
}

// SetResponse answers cmd with resp, which must start with cmd+1.
func (m *MockTransport) SetResponse(cmd byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = resp
}

// SetError makes cmd fail with err until cleared with a nil err.
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, cmd)
		return
	}
	m.errs[cmd] = err
}

// SetHandler answers every command without a canned error through fn.
func (m *MockTransport) SetHandler(fn func(cmd byte, args []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// SetDelay makes every command sleep before answering.
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrTransportClosed
	}
	m.calls = append(m.calls, MockCall{Cmd: cmd, Args: append([]byte(nil), args...)})
	delay := m.delay
	err := m.errs[cmd]
	resp, ok := m.responses[cmd]
	handler := m.handler
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	switch {
	case err != nil:
		return nil, err
	case ok:
		return append([]byte(nil), resp...), nil
	case handler != nil:
		return handler(cmd, args)
	default:
		return nil, NewTimeoutError("SendCommand", "mock")
	}
}

// Calls returns every command seen so far.
func (m *MockTransport) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how often cmd was sent.
func (m *MockTransport) CallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Cmd == cmd {
			n++
		}
	}
	return n
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (*MockTransport) Type() TransportType {
	return TransportMock
}

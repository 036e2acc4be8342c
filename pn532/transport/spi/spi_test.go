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

package spi

import (
	"context"
	"math/bits"
	"sync"
	"testing"

	"github.com/ZaparooProject/go-jukebox/internal/frame"
	testutil "github.com/ZaparooProject/go-jukebox/internal/testing"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
)

// fakeBus decodes bit-reversed SPI traffic and answers via the emulator.
type fakeBus struct {
	emu     *testutil.Emulator
	pending [][]byte
	mu      sync.Mutex
	garble  bool
}

func (*fakeBus) String() string      { return "fake-spi" }
func (*fakeBus) Duplex() conn.Duplex { return conn.Full }

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	plain := reverse(w)
	switch plain[0] {
	case opDataWrite:
		pkt := plain[1:]
		resp, err := b.emu.Handle(pkt[6], pkt[7:len(pkt)-2])
		if err != nil {
			return err
		}
		b.pending = append(b.pending, frame.AckFrame, encode(resp))
	case opStatusRead:
		if len(b.pending) > 0 {
			r[1] = bits.Reverse8(statusReady)
		}
	case opDataRead:
		if len(b.pending) == 0 {
			return nil
		}
		next := b.pending[0]
		b.pending = b.pending[1:]
		if b.garble && len(next) > len(frame.AckFrame) {
			next = append([]byte(nil), next...)
			next[len(next)-2] ^= 0xFF
		}
		copy(r[1:], reverse(next))
	}
	return nil
}

func encode(body []byte) []byte {
	data := append([]byte{frame.Pn532ToHost}, body...)
	length := byte(len(data))
	out := []byte{0x00, 0x00, 0xFF, length, frame.CalculateLengthChecksum(length)}
	out = append(out, data...)
	return append(out, frame.CalculateDataChecksum(frame.Pn532ToHost, body), 0x00)
}

func TestReverse(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0x80, 0x40, 0xC0}, reverse([]byte{0x01, 0x02, 0x03}))
}

func TestTransport_ReadWriteTag(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	tr := NewWithConn(&fakeBus{emu: &testutil.Emulator{Tag: tag}}, "fake")
	device, err := pn532.New(tr)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, device.InitContext(ctx))

	detected, err := device.DetectTag(ctx)
	require.NoError(t, err)
	require.NoError(t, device.NTAGWrite(ctx, detected.TargetNumber, 12, []byte{9, 8, 7, 6}))

	data, err := device.NTAGRead(ctx, detected.TargetNumber, 12)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, data[:4])
}

func TestTransport_CorruptedFrame(t *testing.T) {
	t.Parallel()

	tr := NewWithConn(&fakeBus{emu: &testutil.Emulator{}, garble: true}, "fake")
	_, err := tr.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrFrameCorrupted)
	assert.True(t, pn532.IsRetryable(err))
}

func TestTransport_Type(t *testing.T) {
	t.Parallel()

	tr := NewWithConn(&fakeBus{}, "fake")
	assert.Equal(t, pn532.TransportSPI, tr.Type())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
}

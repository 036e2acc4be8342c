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
	"testing"

	testutil "github.com/ZaparooProject/go-jukebox/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmulatedDevice(t *testing.T, tag *testutil.VirtualTag) (*Device, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	mock.SetHandler((&testutil.Emulator{Tag: tag}).Handle)
	device, err := New(mock)
	require.NoError(t, err)
	require.NoError(t, device.InitContext(context.Background()))
	return device, mock
}

func TestNew_NilTransport(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDevice_Init(t *testing.T) {
	t.Parallel()

	device, mock := newEmulatedDevice(t, nil)

	fw, err := device.GetFirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.6", fw.Version)
	assert.Equal(t, byte(0x32), fw.IC)
	assert.True(t, fw.SupportsISO14443A())

	calls := mock.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, byte(cmdSamConfiguration), calls[1].Cmd)
	assert.Equal(t, []byte{SAMModeNormal, 0x14, 0x01}, calls[1].Args)
	assert.Equal(t, byte(cmdRFConfiguration), calls[2].Cmd)
	assert.Equal(t, []byte{rfItemMaxRetries, 0xFF, 0x01, 0x02}, calls[2].Args)
}

func TestDevice_InitFailure(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetError(cmdGetFirmwareVersion, ErrTransportTimeout)
	device, err := New(mock)
	require.NoError(t, err)

	err = device.InitContext(context.Background())
	require.ErrorIs(t, err, ErrTransportTimeout)
}

func TestDevice_WrongResponseCode(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(cmdGetFirmwareVersion, []byte{0x15, 0x00})
	device, err := New(mock)
	require.NoError(t, err)

	_, err = device.GetFirmwareVersion(context.Background())
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDevice_DetectTag(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	device, _ := newEmulatedDevice(t, tag)

	detected, err := device.DetectTag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.TestNTAG213UID, detected.UIDBytes)
	assert.Equal(t, tag.UIDString(), detected.UID)
	assert.Equal(t, TagTypeNTAG, detected.Type)
	assert.Equal(t, byte(1), detected.TargetNumber)

	tag.Remove()
	_, err = device.DetectTag(context.Background())
	require.ErrorIs(t, err, ErrTagNotFound)
}

func TestDevice_DetectMIFARE(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(cmdInListPassiveTarget, testutil.BuildTagDetectionResponse("MIFARE1K", testutil.TestMIFARE1KUID))
	device, err := New(mock)
	require.NoError(t, err)

	detected, err := device.DetectTag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TagTypeMIFARE, detected.Type)
	assert.Equal(t, "12345678", detected.UID)
}

func TestDevice_InListPassiveTargetTruncated(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(cmdInListPassiveTarget, []byte{0x4B, 0x01, 0x01, 0x00, 0x44, 0x00, 0x07, 0x04})
	device, err := New(mock)
	require.NoError(t, err)

	_, err = device.InListPassiveTarget(context.Background(), 1, BaudRate106kbpsTypeA)
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = device.InListPassiveTarget(context.Background(), 0, BaudRate106kbpsTypeA)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDevice_NTAGReadWrite(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	device, _ := newEmulatedDevice(t, tag)
	ctx := context.Background()

	require.NoError(t, device.NTAGWrite(ctx, 1, 10, []byte{0x11, 0x22, 0x33, 0x44}))
	data, err := device.NTAGRead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, data[:4])
	assert.Len(t, data, 16)

	err = device.NTAGWrite(ctx, 1, 10, []byte{0x01})
	require.ErrorIs(t, err, ErrInvalidParameter)

	err = device.NTAGWrite(ctx, 1, 2, []byte{0, 0, 0, 0})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, byte(0x01), statusErr.Status)
}

func TestDevice_InDataExchangeTooLarge(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	_, err = device.InDataExchange(context.Background(), 1, make([]byte, 300))
	require.ErrorIs(t, err, ErrDataTooLarge)
}

func TestDevice_ContextCancelled(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = device.GetFirmwareVersion(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.CallCount(cmdGetFirmwareVersion))
}

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
	"fmt"
	"sync"
	"time"
)

// DeviceConfig contains configuration options for the Device.
type DeviceConfig struct {
	// Timeout bounds a single command exchange.
	Timeout time.Duration
	// PassiveActivationRetries caps how often the PN532 retries target
	// activation inside one InListPassiveTarget. 0xFF means forever, which
	// would block a poll while no tag is present.
	PassiveActivationRetries byte
}

// DefaultDeviceConfig returns default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:                  time.Second,
		PassiveActivationRetries: 0x02,
	}
}

// FirmwareVersion is the GetFirmwareVersion response.
type FirmwareVersion struct {
	Version string
	IC      byte
	Support byte
}

// SupportsISO14443A reports whether the chip can talk to NTAG tags.
func (f *FirmwareVersion) SupportsISO14443A() bool {
	return f.Support&0x01 != 0
}

// Device is a PN532 reader. Commands are serialised by an internal mutex so
// a Device may be shared by the polling loop and diagnostic tools.
type Device struct {
	transport TransportContext
	config    *DeviceConfig
	firmware  *FirmwareVersion
	mu        sync.Mutex
}

// New creates a device on transport. It does not talk to the hardware; call
// InitContext before use.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	device := &Device{
		transport: AsTransportContext(transport),
		config:    DefaultDeviceConfig(),
	}
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}
	return device, nil
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns the device configuration.
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// SetTimeout sets the per-command timeout on the device and its transport.
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.config.Timeout = timeout
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// Init initializes the PN532 device.
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext reads the firmware version, puts the SAM in normal mode and
// bounds passive activation retries.
func (d *Device) InitContext(ctx context.Context) error {
	fw, err := d.GetFirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}
	debugf("PN532 firmware %s (IC 0x%02X, support 0x%02X)", fw.Version, fw.IC, fw.Support)

	if err := d.SAMConfiguration(ctx, SAMModeNormal, 0x14); err != nil {
		return fmt.Errorf("failed to configure SAM: %w", err)
	}
	if err := d.SetPassiveActivationRetries(ctx, d.config.PassiveActivationRetries); err != nil {
		return fmt.Errorf("failed to set passive activation retries: %w", err)
	}
	return nil
}

// GetFirmwareVersion queries and caches the chip's firmware version.
func (d *Device) GetFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	resp, err := d.sendCommand(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("%w: firmware version length %d", ErrInvalidResponse, len(resp))
	}
	fw := &FirmwareVersion{
		IC:      resp[0],
		Version: fmt.Sprintf("%d.%d", resp[1], resp[2]),
		Support: resp[3],
	}
	d.mu.Lock()
	d.firmware = fw
	d.mu.Unlock()
	return fw, nil
}

// SAMConfiguration sets the security access module mode. timeout is in
// units of 50ms and only used in virtual card mode.
func (d *Device) SAMConfiguration(ctx context.Context, mode, timeout byte) error {
	_, err := d.sendCommand(ctx, cmdSamConfiguration, []byte{mode, timeout, 0x01})
	return err
}

// SetPassiveActivationRetries sets MxRtyPassiveActivation.
func (d *Device) SetPassiveActivationRetries(ctx context.Context, retries byte) error {
	_, err := d.sendCommand(ctx, cmdRFConfiguration, []byte{rfItemMaxRetries, 0xFF, 0x01, retries})
	return err
}

// InListPassiveTarget activates up to maxTargets targets.
func (d *Device) InListPassiveTarget(ctx context.Context, maxTargets, baudRate byte) ([]*DetectedTag, error) {
	if maxTargets == 0 || maxTargets > 2 {
		return nil, fmt.Errorf("%w: max targets %d", ErrInvalidParameter, maxTargets)
	}
	resp, err := d.sendCommand(ctx, cmdInListPassiveTarget, []byte{maxTargets, baudRate})
	if err != nil {
		return nil, err
	}
	return parsePassiveTargets(resp, time.Now())
}

// DetectTag returns the first ISO14443A target in the field, or
// ErrTagNotFound.
func (d *Device) DetectTag(ctx context.Context) (*DetectedTag, error) {
	tags, err := d.InListPassiveTarget(ctx, 1, BaudRate106kbpsTypeA)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, ErrTagNotFound
	}
	return tags[0], nil
}

// InDataExchange relays data to target and returns the tag's answer.
func (d *Device) InDataExchange(ctx context.Context, target byte, data []byte) ([]byte, error) {
	if len(data) > 262 {
		return nil, NewDataTooLargeError("InDataExchange", "")
	}
	args := make([]byte, 0, len(data)+1)
	args = append(args, target)
	args = append(args, data...)

	resp, err := d.sendCommand(ctx, cmdInDataExchange, args)
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("%w: empty InDataExchange response", ErrInvalidResponse)
	}
	if status := resp[0] & 0x3F; status != 0 {
		return nil, &StatusError{Command: cmdInDataExchange, Status: status}
	}
	return resp[1:], nil
}

// InRelease releases target, or every target when target is 0.
func (d *Device) InRelease(ctx context.Context, target byte) error {
	resp, err := d.sendCommand(ctx, cmdInRelease, []byte{target})
	if err != nil {
		return err
	}
	if len(resp) > 0 && resp[0]&0x3F != 0 {
		return &StatusError{Command: cmdInRelease, Status: resp[0] & 0x3F}
	}
	return nil
}

// Close closes the transport.
func (d *Device) Close() error {
	return d.transport.Close()
}

// sendCommand runs one exchange under the device lock and strips the
// response code after checking it.
func (d *Device) sendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok && d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	resp, err := d.transport.SendCommandContext(ctx, cmd, args)
	if err != nil {
		return nil, fmt.Errorf("command 0x%02X: %w", cmd, err)
	}
	if len(resp) < 1 || resp[0] != cmd+1 {
		return nil, fmt.Errorf("%w: command 0x%02X got response %X", ErrInvalidResponse, cmd, resp)
	}
	return resp[1:], nil
}

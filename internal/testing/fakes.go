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

package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZaparooProject/go-jukebox"
)

// ErrInjected is the default error for injected failures.
var ErrInjected = errors.New("injected failure")

// ReaderStats counts calls made through a FakeReader.
type ReaderStats struct {
	Opens    int
	Probes   int
	ReadUIDs int
	Reads    int
	Writes   int
	Closes   int
}

// FakeReader is a jukebox.Reader backed by a VirtualTag. A nil tag means an
// empty field. Each error field, when set, fails the matching call.
type FakeReader struct {
	tag      *VirtualTag
	OpenErr  error
	ProbeErr error
	UIDErr   error
	ReadErr  error
	WriteErr error
	written  []WrittenBlock
	stats    ReaderStats
	mu       sync.Mutex
}

// WrittenBlock is one WriteBlock call as the session received it.
type WrittenBlock struct {
	Data []byte
	Page uint8
}

var _ jukebox.Reader = (*FakeReader)(nil)

// NewFakeReader returns a reader holding tag.
func NewFakeReader(tag *VirtualTag) *FakeReader {
	return &FakeReader{tag: tag}
}

// SetTag swaps the tag in the field.
func (r *FakeReader) SetTag(tag *VirtualTag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tag = tag
}

// Tag returns the tag in the field.
func (r *FakeReader) Tag() *VirtualTag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tag
}

// Fail sets every error field under the lock.
func (r *FakeReader) Fail(open, probe, uid, read, write error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OpenErr, r.ProbeErr, r.UIDErr, r.ReadErr, r.WriteErr = open, probe, uid, read, write
}

// Written returns every block passed to WriteBlock, including calls that
// failed.
func (r *FakeReader) Written() []WrittenBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WrittenBlock(nil), r.written...)
}

// Stats returns a snapshot of call counts.
func (r *FakeReader) Stats() ReaderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *FakeReader) Open(context.Context) (jukebox.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Opens++
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	return &fakeSession{reader: r}, nil
}

type fakeSession struct {
	reader *FakeReader
	tag    *VirtualTag
}

func (s *fakeSession) Probe(context.Context) error {
	r := s.reader
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Probes++
	if r.ProbeErr != nil {
		return r.ProbeErr
	}
	if r.tag == nil || !r.tag.Present() {
		return jukebox.ErrNoTag
	}
	s.tag = r.tag
	return nil
}

func (s *fakeSession) ReadUID(context.Context) (jukebox.UID, error) {
	r := s.reader
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.ReadUIDs++
	if r.UIDErr != nil {
		return nil, r.UIDErr
	}
	if s.tag == nil {
		return nil, jukebox.ErrNoTag
	}
	return jukebox.UID(s.tag.UID()), nil
}

func (s *fakeSession) ReadBlock(_ context.Context, page uint8) ([]byte, error) {
	r := s.reader
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Reads++
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}
	if s.tag == nil {
		return nil, jukebox.ErrNoTag
	}
	return s.tag.ReadPages(page)
}

func (s *fakeSession) WriteBlock(_ context.Context, page uint8, data []byte) error {
	r := s.reader
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Writes++
	r.written = append(r.written, WrittenBlock{Page: page, Data: append([]byte(nil), data...)})
	if r.WriteErr != nil {
		return r.WriteErr
	}
	if s.tag == nil {
		return jukebox.ErrNoTag
	}
	if len(data) < pageSize {
		return ErrWriteRejected
	}
	return s.tag.WritePage(page, data[:pageSize])
}

func (s *fakeSession) Close() error {
	r := s.reader
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Closes++
	return nil
}

// FakePlayer records playback calls. It satisfies playback.Player.
type FakePlayer struct {
	PlayErr error
	StopErr error
	loaded  string
	events  []string
	volume  int
	mu      sync.Mutex
	playing bool
}

func NewFakePlayer() *FakePlayer {
	return &FakePlayer{}
}

func (p *FakePlayer) Load(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = path
	p.events = append(p.events, "load "+path)
	return nil
}

func (p *FakePlayer) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "play")
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.playing = true
	return nil
}

func (p *FakePlayer) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "stop")
	if p.StopErr != nil {
		return p.StopErr
	}
	p.playing = false
	return nil
}

func (p *FakePlayer) IsPlaying(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing, nil
}

func (p *FakePlayer) SetVolume(_ context.Context, percent int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
	return nil
}

func (*FakePlayer) Close() error {
	return nil
}

// Finish simulates the track running out.
func (p *FakePlayer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Loaded returns the last loaded path.
func (p *FakePlayer) Loaded() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Events returns the call log, e.g. ["load /m/a.mp3", "play", "stop"].
func (p *FakePlayer) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Count returns how many events equal name.
func (p *FakePlayer) Count(name string) int {
	n := 0
	for _, e := range p.Events() {
		if e == name {
			n++
		}
	}
	return n
}

// Volume returns the last volume set.
func (p *FakePlayer) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// FakeSwitch counts Disable calls. It satisfies power.Switch.
type FakeSwitch struct {
	Err   error
	calls int
	mu    sync.Mutex
}

func (s *FakeSwitch) Disable(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.Err
}

func (s *FakeSwitch) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Clock is a manually advanced clock.
type Clock struct {
	now time.Time
	mu  sync.Mutex
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

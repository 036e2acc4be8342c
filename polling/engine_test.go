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

package polling_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZaparooProject/go-jukebox"
	testutil "github.com/ZaparooProject/go-jukebox/internal/testing"
	"github.com/ZaparooProject/go-jukebox/polling"
	"github.com/ZaparooProject/go-jukebox/power"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testStopThreshold   = 2
	testReplayThreshold = 4
	testPowerDelay      = time.Minute
)

type fixture struct {
	engine *polling.Engine
	reader *testutil.FakeReader
	player *testutil.FakePlayer
	sw     *testutil.FakeSwitch
	clock  *testutil.Clock
	tag    *testutil.VirtualTag

	mu      sync.Mutex
	played  []polling.PlayEvent
	stopped []string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tag:    testutil.NewVirtualNTAG213(nil),
		player: testutil.NewFakePlayer(),
		sw:     &testutil.FakeSwitch{},
		clock:  testutil.NewClock(),
	}
	f.tag.Remove()
	f.reader = testutil.NewFakeReader(f.tag)

	timer := power.NewTimer(testPowerDelay, f.sw,
		power.WithClock(f.clock.Now),
		power.WithLogger(discardLogger()))

	cfg := &polling.Config{
		Media: fstest.MapFS{
			"a.mp3": {Data: []byte("a")},
			"b.mp3": {Data: []byte("b")},
		},
		Logger:          discardLogger(),
		MusicRoot:       "/music",
		PollInterval:    time.Millisecond,
		StopThreshold:   testStopThreshold,
		ReplayThreshold: testReplayThreshold,
	}
	f.engine = polling.New(f.reader, f.player, timer, cfg, polling.Callbacks{
		OnPlay: func(ev polling.PlayEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.played = append(f.played, ev)
		},
		OnStop: func(name string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.stopped = append(f.stopped, name)
		},
	})
	f.engine.SetRegistry(jukebox.NewRegistry("a.mp3", "b.mp3", "gone.mp3"))
	return f
}

// place puts a tag carrying payload in the field.
func (f *fixture) place(payload jukebox.Payload) {
	f.tag.SetBlock(jukebox.DefaultPage, payload[:])
	f.tag.Insert()
}

func (f *fixture) remove() {
	f.tag.Remove()
}

func (f *fixture) cycles(t *testing.T, n int) {
	t.Helper()
	for range n {
		_ = f.engine.PollOnce(context.Background())
	}
}

func (f *fixture) playedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.played))
	for _, ev := range f.played {
		names = append(names, ev.Name)
	}
	return names
}

func TestPollOnce_PlaysRegisteredFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	require.NoError(t, f.engine.PollOnce(context.Background()))

	assert.Equal(t, "a.mp3", f.engine.Status().Current)
	assert.Equal(t, []string{"load /music/a.mp3", "play"}, f.player.Events())

	uid, ok := f.engine.UID()
	require.True(t, ok)
	assert.Equal(t, f.tag.UID(), []byte(uid))

	data, ok := f.engine.Data()
	require.True(t, ok)
	assert.Equal(t, jukebox.MusicFileKey("a.mp3"), data)

	f.mu.Lock()
	require.Len(t, f.played, 1)
	assert.Equal(t, "/music/a.mp3", f.played[0].Path)
	assert.True(t, f.played[0].UID.Equal(uid))
	f.mu.Unlock()
}

func TestPollOnce_SamePayloadPlaysOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 10)

	assert.Equal(t, 1, f.player.Count("play"))
	assert.Equal(t, []string{"a.mp3"}, f.playedNames())
}

func TestPollOnce_UnknownControlByte(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)

	other := jukebox.MusicFileKey("b.mp3")
	other[0] = 0x22
	f.place(other)
	f.cycles(t, 5)

	status := f.engine.Status()
	assert.Equal(t, "a.mp3", status.Current)
	assert.Equal(t, uint32(0), status.Absences)
	assert.Equal(t, 1, f.player.Count("play"))
	assert.Zero(t, f.player.Count("stop"))
}

func TestPollOnce_UnregisteredKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("missing.mp3"))
	f.cycles(t, 3)

	assert.Empty(t, f.player.Events())
	assert.Empty(t, f.engine.Status().Current)

	data, ok := f.engine.Data()
	assert.True(t, ok)
	assert.Equal(t, jukebox.MusicFileKey("missing.mp3"), data)
}

func TestPollOnce_RegisteredFileMissingFromDisk(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.remove()
	f.cycles(t, 3)
	require.Equal(t, uint32(3), f.engine.Status().Absences)

	f.place(jukebox.MusicFileKey("gone.mp3"))
	f.cycles(t, 1)

	status := f.engine.Status()
	assert.Empty(t, status.Current)
	assert.Equal(t, uint32(0), status.Absences, "a registered key counts as presence")
	assert.Zero(t, f.player.Count("play"))
}

func TestPollOnce_Debounce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		away      int
		wantPlays int
		wantStops int
	}{
		{name: "short dropout keeps playing", away: testStopThreshold - 1, wantPlays: 1, wantStops: 0},
		{name: "stopped but below replay threshold", away: testReplayThreshold - 1, wantPlays: 1, wantStops: 1},
		{name: "away long enough replays", away: testReplayThreshold, wantPlays: 2, wantStops: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			key := jukebox.MusicFileKey("a.mp3")

			f.place(key)
			f.cycles(t, 1)

			f.remove()
			f.cycles(t, tt.away)

			f.place(key)
			f.cycles(t, 3)

			assert.Equal(t, tt.wantPlays, f.player.Count("play"))
			assert.Equal(t, tt.wantStops, f.player.Count("stop"))
		})
	}
}

func TestPollOnce_ShortDropoutKeepsCurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)
	f.remove()
	f.cycles(t, testStopThreshold-1)

	assert.Equal(t, "a.mp3", f.engine.Status().Current)
}

func TestPollOnce_OtherFilePlaysImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)
	f.place(jukebox.MusicFileKey("b.mp3"))
	f.cycles(t, 1)

	assert.Equal(t, []string{"a.mp3", "b.mp3"}, f.playedNames())
	assert.Equal(t, "b.mp3", f.engine.Status().Previous)
}

func TestPollOnce_AbsenceStopsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)
	f.remove()
	f.cycles(t, 20)

	assert.Equal(t, 1, f.player.Count("stop"))
	assert.Empty(t, f.engine.Status().Current)

	f.mu.Lock()
	assert.Equal(t, []string{"a.mp3"}, f.stopped)
	f.mu.Unlock()
}

func TestPollOnce_NoStopWhenPlayerIdle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)
	f.player.Finish()
	f.remove()
	f.cycles(t, testStopThreshold+1)

	assert.Zero(t, f.player.Count("stop"))
	assert.Empty(t, f.engine.Status().Current)
}

func TestPollOnce_PlayFailureLeavesCurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.player.PlayErr = testutil.ErrInjected

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 2)

	assert.Empty(t, f.engine.Status().Current)
	assert.Equal(t, 2, f.player.Count("play"), "a failed play is retried next cycle")
	assert.Empty(t, f.playedNames())
}

func TestPollOnce_ReaderFailuresCountAsAbsence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		set  func(r *testutil.FakeReader)
		name string
	}{
		{name: "open", set: func(r *testutil.FakeReader) { r.Fail(testutil.ErrInjected, nil, nil, nil, nil) }},
		{name: "probe", set: func(r *testutil.FakeReader) { r.Fail(nil, testutil.ErrInjected, nil, nil, nil) }},
		{name: "uid", set: func(r *testutil.FakeReader) { r.Fail(nil, nil, testutil.ErrInjected, nil, nil) }},
		{name: "read", set: func(r *testutil.FakeReader) { r.Fail(nil, nil, nil, testutil.ErrInjected, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.place(jukebox.MusicFileKey("a.mp3"))
			tt.set(f.reader)

			err := f.engine.PollOnce(context.Background())
			require.ErrorIs(t, err, testutil.ErrInjected)

			_, ok := f.engine.UID()
			assert.False(t, ok)
			_, ok = f.engine.Data()
			assert.False(t, ok)

			status := f.engine.Status()
			assert.Equal(t, uint32(1), status.Absences)
			assert.Equal(t, int64(1), status.Metrics.PollErrors)
			assert.Empty(t, f.player.Events())
		})
	}
}

func TestPollOnce_SessionAlwaysClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cycles(t, 2)
	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 2)
	f.reader.Fail(nil, nil, nil, testutil.ErrInjected, nil)
	f.cycles(t, 1)

	stats := f.reader.Stats()
	assert.Equal(t, 5, stats.Opens)
	assert.Equal(t, 5, stats.Closes)
}

func TestPollOnce_NoTagClearsState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)
	f.remove()
	require.NoError(t, f.engine.PollOnce(context.Background()))

	_, ok := f.engine.UID()
	assert.False(t, ok)
	status := f.engine.Status()
	assert.False(t, status.Present)
	assert.Empty(t, status.UID)
	assert.Empty(t, status.Data)
}

func TestPowerTimer(t *testing.T) {
	t.Parallel()

	t.Run("below threshold does not disable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.clock.Advance(testPowerDelay - time.Second)
		f.cycles(t, 3)

		assert.Zero(t, f.sw.Calls())
		assert.False(t, f.engine.NetworkDisabled())
		assert.Equal(t, time.Second, f.engine.PowerTimeLeft())
	})

	t.Run("crossing threshold disables once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.clock.Advance(testPowerDelay + time.Second)
		f.cycles(t, 1)
		f.clock.Advance(time.Hour)
		f.cycles(t, 5)

		assert.Equal(t, 1, f.sw.Calls())
		assert.True(t, f.engine.NetworkDisabled())
		assert.Zero(t, f.engine.PowerTimeLeft())
	})

	t.Run("reset restarts measurement", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.clock.Advance(50 * time.Second)
		f.cycles(t, 1)

		f.engine.ResetPowerTimer()
		f.cycles(t, 1)
		assert.Equal(t, testPowerDelay, f.engine.PowerTimeLeft())

		f.clock.Advance(50 * time.Second)
		f.cycles(t, 1)
		assert.Zero(t, f.sw.Calls())
		assert.Equal(t, 10*time.Second, f.engine.PowerTimeLeft())
	})

	t.Run("reset after disable keeps network off", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.clock.Advance(2 * testPowerDelay)
		f.cycles(t, 1)
		f.engine.ResetPowerTimer()
		f.clock.Advance(2 * testPowerDelay)
		f.cycles(t, 2)

		assert.Equal(t, 1, f.sw.Calls())
		assert.True(t, f.engine.NetworkDisabled())
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.engine.SetRegistry(jukebox.Registry{jukebox.MusicFileKey("c.mp3"): "c.mp3"})
	_, ok := f.engine.Lookup(jukebox.MusicFileKey("a.mp3"))
	assert.True(t, ok, "SetRegistry merges")
	name, ok := f.engine.Lookup(jukebox.MusicFileKey("c.mp3"))
	assert.True(t, ok)
	assert.Equal(t, "c.mp3", name)

	f.engine.SetRegistry(jukebox.Registry{jukebox.MusicFileKey("c.mp3"): "renamed.mp3"})
	name, _ = f.engine.Lookup(jukebox.MusicFileKey("c.mp3"))
	assert.Equal(t, "renamed.mp3", name)

	replacement := jukebox.NewRegistry("b.mp3")
	f.engine.ReplaceRegistry(replacement)
	delete(replacement, jukebox.MusicFileKey("b.mp3"))

	_, ok = f.engine.Lookup(jukebox.MusicFileKey("a.mp3"))
	assert.False(t, ok, "ReplaceRegistry drops old keys")
	_, ok = f.engine.Lookup(jukebox.MusicFileKey("b.mp3"))
	assert.True(t, ok, "the engine keeps its own copy")
	assert.Equal(t, 1, f.engine.Status().RegistrySize)
}

func TestScenario_PresentRegisteredFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.engine.ReplaceRegistry(jukebox.NewRegistry("a.mp3"))

	f.place(jukebox.MusicFileKey("a.mp3"))
	f.cycles(t, 1)

	assert.Equal(t, "a.mp3", f.engine.Status().Current)
	assert.Equal(t, 1, f.player.Count("play"))
}

func TestScenario_UnregisteredMissingFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.engine.ReplaceRegistry(jukebox.Registry{})

	f.place(jukebox.MusicFileKey("missing.mp3"))
	f.cycles(t, 1)

	assert.Empty(t, f.player.Events())
	assert.Empty(t, f.engine.Status().Current)
}

func TestRun_StopsOnRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	done := make(chan error, 1)
	go func() {
		done <- f.engine.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		return f.engine.Metrics().PollCycles >= 3
	}, 2*time.Second, time.Millisecond)

	f.engine.RequestStop()
	f.engine.RequestStop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after RequestStop")
	}
}

func TestRun_StopsOnContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.engine.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return f.engine.Metrics().PollCycles >= 1
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_StopRequestedBeforeStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.engine.RequestStop()
	require.NoError(t, f.engine.Run(context.Background()))
	assert.Zero(t, f.reader.Stats().Opens)
}

func TestRun_ConcurrentAccessors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.place(jukebox.MusicFileKey("a.mp3"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- f.engine.Run(ctx)
	}()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				switch i {
				case 0:
					_, _ = f.engine.UID()
					_, _ = f.engine.Data()
				case 1:
					_ = f.engine.Status()
					_ = f.engine.PowerTimeLeft()
				case 2:
					f.engine.SetRegistry(jukebox.NewRegistry("b.mp3"))
					f.engine.ResetPowerTimer()
				case 3:
					key := jukebox.MusicFileKey("a.mp3")
					_ = f.engine.Write(ctx, key[:])
				}
			}
		}()
	}
	wg.Wait()

	f.engine.RequestStop()
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.player.Count("play"))
}

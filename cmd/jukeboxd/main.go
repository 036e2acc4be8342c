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

// Command jukeboxd plays music when a tag is placed on the reader and
// serves the web interface used to write tags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/history"
	"github.com/ZaparooProject/go-jukebox/internal/config"
	"github.com/ZaparooProject/go-jukebox/internal/hw"
	"github.com/ZaparooProject/go-jukebox/media"
	"github.com/ZaparooProject/go-jukebox/pn532"
	"github.com/ZaparooProject/go-jukebox/polling"
	"github.com/ZaparooProject/go-jukebox/server"
)

var version = "dev"

type flags struct {
	configPath  string
	device      string
	transport   string
	listen      string
	musicRoot   string
	verbose     bool
	showVersion bool
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVarP(&f.configPath, "config", "c", "", "path to the YAML configuration file")
	flag.StringVar(&f.device, "device", "", "reader device path (overrides reader.device)")
	flag.StringVar(&f.transport, "transport", "", "reader transport: auto, uart, i2c or spi")
	flag.StringVar(&f.listen, "listen", "", "web interface address (overrides server.listen)")
	flag.StringVar(&f.musicRoot, "music-root", "", "music directory (overrides music_root)")
	flag.BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")
	flag.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return f
}

// overrides turns set flags into config overrides.
func (f *flags) overrides() func(*config.Config) {
	return func(c *config.Config) {
		if f.device != "" {
			c.Reader.Device = f.device
		}
		if f.transport != "" {
			c.Reader.Transport = f.transport
		}
		if f.listen != "" {
			c.Server.Listen = f.listen
		}
		if f.musicRoot != "" {
			c.MusicRoot = f.musicRoot
		}
		if f.verbose {
			c.Log.Level = "debug"
		}
	}
}

func main() {
	f := parseFlags()
	if f.showVersion {
		_, _ = fmt.Println("jukeboxd", version)
		return
	}

	cfg, err := config.Load(f.configPath, f.overrides())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "jukeboxd: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("jukeboxd failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Log.Level == "debug" {
		pn532.SetLogger(logger)
	}

	device, err := hw.OpenDevice(ctx, hw.Options{
		Logger:         logger,
		Transport:      cfg.Reader.Transport,
		Device:         cfg.Reader.Device,
		CommandTimeout: cfg.Reader.CommandTimeout,
		Retries:        cfg.Reader.Retries,
	})
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			logger.Warn("failed to close reader", "error", err)
		}
	}()
	reader := jukebox.WithTimeout(pn532.NewReader(device), cfg.Reader.CallTimeout)

	player, err := newPlayer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := player.Close(); err != nil {
			logger.Warn("failed to close player", "error", err)
		}
	}()
	if err := player.SetVolume(ctx, cfg.Playback.DefaultVolume); err != nil {
		logger.Warn("failed to set default volume", "volume", cfg.Playback.DefaultVolume, "error", err)
	}

	var store *history.Store
	if cfg.History.Path != "" {
		if store, err = history.Open(cfg.History.Path); err != nil {
			return err
		}
		defer store.Close()
	}

	library := media.NewLibrary(cfg.MusicRoot, media.WithLogger(logger))
	engine := polling.New(reader, player, newTimer(cfg, logger), &polling.Config{
		Logger:          logger,
		MusicRoot:       cfg.MusicRoot,
		Media:           library.FS(),
		PollInterval:    cfg.Polling.Interval,
		StopThreshold:   cfg.Polling.StopThreshold,
		ReplayThreshold: cfg.Polling.ReplayThreshold,
		Page:            cfg.Reader.Page,
	}, polling.Callbacks{
		OnPlay: recordPlay(ctx, store, logger),
	})

	srv := server.New(server.Config{
		Engine:         engine,
		Library:        library,
		History:        historyOrNil(store),
		Logger:         logger,
		StatusInterval: cfg.Server.StatusInterval,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		HistoryLimit:   cfg.History.Limit,
		Prune:          cfg.Registry.Prune,
	})
	if entries, err := srv.SyncLibrary(); err != nil {
		logger.Warn("initial music library scan failed", "error", err)
	} else {
		logger.Info("music library loaded", "root", cfg.MusicRoot, "files", len(entries))
	}

	playStartSound(ctx, player, cfg.StartSound, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		library.RunRescan(ctx, cfg.Registry.RescanInterval, engine, cfg.Registry.Prune)
	}()

	err = srv.ListenAndServe(ctx, cfg.Server.Listen)
	serveDone := ctx.Err()
	engine.RequestStop()
	cancel()
	wg.Wait()
	if err != nil {
		return err
	}
	return serveDone
}

// historyOrNil keeps a nil *history.Store from becoming a non-nil
// interface.
func historyOrNil(store *history.Store) server.History {
	if store == nil {
		return nil
	}
	return store
}

func recordPlay(ctx context.Context, store *history.Store, logger *slog.Logger) func(polling.PlayEvent) {
	if store == nil {
		return nil
	}
	return func(ev polling.PlayEvent) {
		if _, err := store.Record(ctx, ev.Name, ev.UID.String(), ev.At); err != nil {
			logger.Warn("failed to record play", "file", ev.Name, "error", err)
		}
	}
}

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

// Package server is the web interface of the jukebox: it lists music
// files, shows the tag in the field, writes tags and reports power and
// playback state.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/history"
	"github.com/ZaparooProject/go-jukebox/media"
	"github.com/ZaparooProject/go-jukebox/polling"
)

//go:embed static
var staticFiles embed.FS

// Engine is the part of polling.Engine the web interface uses.
type Engine interface {
	media.RegistrySink
	UID() (jukebox.UID, bool)
	Data() (jukebox.Payload, bool)
	Write(ctx context.Context, payload []byte) error
	Lookup(key jukebox.Payload) (string, bool)
	ResetPowerTimer()
	PowerTimeLeft() time.Duration
	NetworkDisabled() bool
	Status() polling.Status
}

// Library lists and stores music files.
type Library interface {
	Sync(sink media.RegistrySink, prune bool) ([]media.Entry, error)
	Save(name string, r io.Reader) error
}

// History lists recent plays.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Play, error)
}

type Config struct {
	Engine  Engine
	Library Library
	// History is optional.
	History History
	Logger  *slog.Logger
	// StatusInterval is the period of /ws/status updates.
	StatusInterval time.Duration
	MaxUploadBytes int64
	HistoryLimit   int
	// Prune replaces the engine registry on rescans instead of merging.
	Prune bool
}

type Server struct {
	engine  Engine
	library Library
	history History
	logger  *slog.Logger
	router  chi.Router
	config  Config
}

// New builds the router. Engine and Library are required.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	s := &Server{
		engine:  cfg.Engine,
		library: cfg.Library,
		history: cfg.History,
		logger:  cfg.Logger,
		config:  cfg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Page loads and actions count as interaction. The page's own
	// background polling must not, or the network would never go off
	// while a tab stays open.
	r.Group(func(r chi.Router) {
		r.Use(s.interaction)
		r.Get("/", s.handleHome)
		r.Get("/json/musicfiles", s.handleMusicFiles)
		r.Get("/actions/writenfc", s.handleWriteNFC)
		r.Post("/actions/upload", s.handleUpload)
	})

	r.Get("/json/readnfc", s.handleReadNFC)
	r.Get("/json/power", s.handlePower)
	r.Get("/json/status", s.handleStatus)
	r.Get("/json/history", s.handleHistory)
	r.Get("/ws/status", s.handleStatusStream)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SyncLibrary rescans the music root and pushes the registry to the
// engine.
func (s *Server) SyncLibrary() ([]media.Entry, error) {
	return s.library.Sync(s.engine, s.config.Prune)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web interface listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown web interface: %w", err)
	}
	return nil
}

// interaction counts a request as user activity and restarts the network
// power-off countdown.
func (s *Server) interaction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.engine.ResetPowerTimer()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

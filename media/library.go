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

// Package media scans the music directory and keeps the tag registry in
// step with the files found there.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-jukebox"
)

var (
	// ErrInvalidName is returned for upload names that are not a plain,
	// visible base name.
	ErrInvalidName = errors.New("invalid music file name")
	// ErrReadOnly is returned by Save on a library without a directory.
	ErrReadOnly = errors.New("music library is read-only")
)

// Entry is one playable file. Hash is the hex payload a tag must carry to
// play it.
type Entry struct {
	Name string          `json:"name"`
	Hash string          `json:"hash"`
	Key  jukebox.Payload `json:"-"`
}

// RegistrySink receives the registry after a scan.
type RegistrySink interface {
	SetRegistry(jukebox.Registry)
	ReplaceRegistry(jukebox.Registry)
}

// Library is the set of files at the top level of the music root.
type Library struct {
	lastScan time.Time
	fsys     fs.FS
	registry jukebox.Registry
	logger   *slog.Logger
	root     string
	entries  []Entry
	mu       sync.RWMutex
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the library logger.
func WithLogger(l *slog.Logger) Option {
	return func(lib *Library) {
		lib.logger = l
	}
}

// WithFS scans fsys instead of the root directory. Save still writes to
// root when it is set.
func WithFS(fsys fs.FS) Option {
	return func(lib *Library) {
		lib.fsys = fsys
	}
}

// NewLibrary returns an empty library over root. Call Scan to populate it.
func NewLibrary(root string, opts ...Option) *Library {
	lib := &Library{
		root:     root,
		registry: jukebox.Registry{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(lib)
	}
	if lib.fsys == nil && root != "" {
		lib.fsys = os.DirFS(root)
	}
	return lib
}

// Root returns the directory the library was created over.
func (l *Library) Root() string {
	return l.root
}

// FS returns the filesystem the library scans.
func (l *Library) FS() fs.FS {
	return l.fsys
}

// Path returns the on-disk path of name.
func (l *Library) Path(name string) string {
	return filepath.Join(l.root, name)
}

// Scan lists the regular, non-hidden files at the top level of the root in
// name order and rebuilds the registry from them.
func (l *Library) Scan() ([]Entry, error) {
	if l.fsys == nil {
		return nil, fmt.Errorf("scan music library: %w", fs.ErrInvalid)
	}
	dirents, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("scan music library %s: %w", l.root, err)
	}

	found := make([]Entry, 0, len(dirents))
	registry := make(jukebox.Registry, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			continue
		}
		key := jukebox.MusicFileKey(name)
		found = append(found, Entry{Name: name, Hash: key.String(), Key: key})
		registry[key] = name
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	l.mu.Lock()
	l.entries = found
	l.registry = registry
	l.lastScan = time.Now()
	l.mu.Unlock()

	l.logger.Debug("music library scanned", "root", l.root, "files", len(found))
	return append([]Entry(nil), found...), nil
}

// Sync scans and pushes the result to sink. With prune the sink registry is
// replaced, so removed files stop resolving; otherwise it is merged.
func (l *Library) Sync(sink RegistrySink, prune bool) ([]Entry, error) {
	entries, err := l.Scan()
	if err != nil {
		return nil, err
	}
	registry := l.Registry()
	if prune {
		sink.ReplaceRegistry(registry)
	} else {
		sink.SetRegistry(registry)
	}
	return entries, nil
}

// RunRescan calls Sync every interval until ctx is done. Scan failures are
// logged and the loop continues.
func (l *Library) RunRescan(ctx context.Context, interval time.Duration, sink RegistrySink, prune bool) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Sync(sink, prune); err != nil {
				l.logger.Warn("music library rescan failed", "error", err)
			}
		}
	}
}

// Entries returns the files found by the last scan.
func (l *Library) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Registry returns a copy of the registry built by the last scan.
func (l *Library) Registry() jukebox.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Clone()
}

// Lookup resolves a payload against the last scan.
func (l *Library) Lookup(key jukebox.Payload) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	name, ok := l.registry[key]
	return name, ok
}

// LastScan returns when the last scan finished; zero before the first.
func (l *Library) LastScan() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastScan
}

// Save stores r as name in the root directory. The file is written under a
// temporary name and renamed into place.
func (l *Library) Save(name string, r io.Reader) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if l.root == "" {
		return ErrReadOnly
	}

	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close upload %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod upload %s: %w", name, err)
	}
	if err := os.Rename(tmpName, l.Path(name)); err != nil {
		return fmt.Errorf("store upload %s: %w", name, err)
	}
	l.logger.Info("music file stored", "name", name)
	return nil
}

// ValidateName accepts plain, visible base names only.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden file %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), filepath.Base(name) != name:
		return fmt.Errorf("%w: %q is not a base name", ErrInvalidName, name)
	}
	return nil
}

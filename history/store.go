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

// Package history records which music files were played, from which tag,
// and when. It is optional: the daemon only opens a store when a database
// path is configured.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history store closed")

// Play is one recorded play decision.
type Play struct {
	StartedAt time.Time `json:"started_at"`
	ID        string    `json:"id"`
	File      string    `json:"file"`
	UID       string    `json:"uid"`
}

// Store keeps plays in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id         TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	uid        TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS plays_started_at ON plays (started_at DESC);
`

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// One connection keeps an in-memory database shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure history %s: %w", path, err)
		}
	}

	s := &Store{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record stores a play and returns it with its generated ID.
func (s *Store) Record(ctx context.Context, file, uid string, at time.Time) (Play, error) {
	if s == nil || s.db == nil {
		return Play{}, ErrClosed
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Play{}, fmt.Errorf("generate play id: %w", err)
	}
	p := Play{ID: id.String(), File: file, UID: uid, StartedAt: at.UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plays (id, file, uid, started_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.File, p.UID, p.StartedAt.UnixNano())
	if err != nil {
		return Play{}, fmt.Errorf("record play of %s: %w", file, err)
	}
	return p, nil
}

// Recent returns up to limit plays, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Play, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return []Play{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, uid, started_at FROM plays ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query plays: %w", err)
	}
	defer rows.Close()

	plays := make([]Play, 0, limit)
	for rows.Next() {
		var (
			p  Play
			ns int64
		)
		if err := rows.Scan(&p.ID, &p.File, &p.UID, &ns); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		p.StartedAt = time.Unix(0, ns).UTC()
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}
	return plays, nil
}

// Count returns how often file was played.
func (s *Store) Count(ctx context.Context, file string) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays WHERE file = ?`, file).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plays of %s: %w", file, err)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

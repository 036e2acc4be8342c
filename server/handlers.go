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

package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ZaparooProject/go-jukebox"
	"github.com/ZaparooProject/go-jukebox/history"
	"github.com/ZaparooProject/go-jukebox/media"
)

const none = "none"

type tagInfo struct {
	UID         string `json:"uid"`
	Data        string `json:"data"`
	Description string `json:"description"`
}

type actionResult struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type powerInfo struct {
	SecondsLeft     float64 `json:"seconds_left"`
	NetworkDisabled bool    `json:"network_disabled"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleMusicFiles(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.SyncLibrary()
	if err != nil {
		s.logger.Error("music library scan failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []media.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReadNFC(w http.ResponseWriter, _ *http.Request) {
	info := tagInfo{UID: none, Data: none, Description: "No tag present"}

	if uid, ok := s.engine.UID(); ok {
		info.UID = hex.EncodeToString(uid)
	}
	if data, ok := s.engine.Data(); ok {
		info.Data = data.String()
		info.Description = s.describe(data)
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) describe(data jukebox.Payload) string {
	cmd, ok := jukebox.DecodePayload(data).(jukebox.PlayMusic)
	if !ok {
		return "Unknown control byte or tag empty"
	}
	if name, ok := s.engine.Lookup(cmd.Key); ok {
		return "Play music file " + name
	}
	return "Play a music file not currently present on the device"
}

func (s *Server) handleWriteNFC(w http.ResponseWriter, r *http.Request) {
	hexData := r.URL.Query().Get("data")
	if hexData == "" {
		writeJSON(w, http.StatusOK, actionResult{Message: "No data argument given for writenfc endpoint"})
		return
	}
	data, err := hex.DecodeString(hexData)
	if err != nil {
		writeJSON(w, http.StatusOK, actionResult{Message: "Invalid hex data: " + hexData})
		return
	}
	if data[0] != jukebox.ControlMusicFile {
		writeJSON(w, http.StatusOK, actionResult{Message: "Unknown control byte: " + hex.EncodeToString(data[:1])})
		return
	}

	key, err := jukebox.ParsePayload(data)
	if err != nil {
		s.logger.Debug("write request rejected", "data", hexData, "error", err)
		writeJSON(w, http.StatusOK, actionResult{Message: "Unknown hash value!"})
		return
	}
	name, ok := s.engine.Lookup(key)
	if !ok {
		writeJSON(w, http.StatusOK, actionResult{Message: "Unknown hash value!"})
		return
	}

	if err := s.engine.Write(r.Context(), data); err != nil {
		s.logger.Warn("tag write from web interface failed", "file", name, "error", err)
		writeJSON(w, http.StatusOK, actionResult{Message: "Error writing NFC tag data " + hexData})
		return
	}
	writeJSON(w, http.StatusOK, actionResult{Success: true, Message: "Successfully wrote NFC tag for file: " + name})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, actionResult{Message: "No file given: " + err.Error()})
		return
	}
	defer file.Close()

	if err := s.library.Save(header.Filename, file); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, media.ErrInvalidName) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("upload failed", "name", header.Filename, "error", err)
		writeJSON(w, status, actionResult{Message: "Error storing " + header.Filename + ": " + err.Error()})
		return
	}
	if _, err := s.SyncLibrary(); err != nil {
		s.logger.Error("music library scan failed", "error", err)
	}
	writeJSON(w, http.StatusOK, actionResult{Success: true, Message: "Stored music file: " + header.Filename})
}

func (s *Server) handlePower(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, powerInfo{
		SecondsLeft:     s.engine.PowerTimeLeft().Seconds(),
		NetworkDisabled: s.engine.NetworkDisabled(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	limit := s.config.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, s.config.HistoryLimit)
	}
	plays, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if plays == nil {
		plays = []history.Play{}
	}
	writeJSON(w, http.StatusOK, plays)
}

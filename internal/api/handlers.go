// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/censord/internal/jobs"
	"github.com/ManuGH/censord/internal/log"
)

type censorRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Errors  string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Errors: msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "'" + s.cfg.LogService + "' is currently up and running",
	})
}

func (s *Server) handleCensor(w http.ResponseWriter, r *http.Request) {
	var req censorRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username must not be empty")
		return
	}

	result, err := s.censor.Process(r.Context(), req.Username, req.Message)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldUsername, req.Username).
			Msg("censor processing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusConflict, "dataset sync is not configured")
		return
	}

	status, err := s.sync.Trigger(r.Context())
	if errors.Is(err, jobs.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("manual sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

type statusResponse struct {
	Version        string           `json:"version"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	DatasetVersion uint64           `json:"dataset_version"`
	OverlaySizes   map[string]int   `json:"overlay_sizes"`
	LastSync       *jobs.SyncStatus `json:"last_sync,omitempty"`
	ServerLinkUp   *bool            `json:"server_link_up,omitempty"`
	TwitchUp       *bool            `json:"twitch_up,omitempty"`
	Decisions      map[string]int   `json:"decisions,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:        s.cfg.Version,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		DatasetVersion: s.datasets.Version(),
		OverlaySizes:   s.datasets.OverlaySizes(),
	}
	if s.sync != nil {
		resp.LastSync = s.sync.Last()
	}
	if s.wsConnected != nil {
		up := s.wsConnected()
		resp.ServerLinkUp = &up
	}
	if s.twitchConnected != nil {
		up := s.twitchConnected()
		resp.TwitchUp = &up
	}
	if s.verdicts != nil {
		if counts, err := s.verdicts.CountByVerdict(r.Context()); err == nil {
			resp.Decisions = counts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

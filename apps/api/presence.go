package main

import (
	"encoding/json"
	"net/http"
)

type StatusRequest struct {
	IsOnline *bool `json:"isOnline"`
}

func (s *server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsOnline == nil {
		http.Error(w, "isOnline is required", http.StatusBadRequest)
		return
	}

	ev, err := s.presence.Set(r.Context(), userID(r), *req.IsOnline)
	if err != nil {
		s.writeError(w, r, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, ev.After)
}

func (s *server) handleClearStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := s.presence.Clear(r.Context(), userID(r)); err != nil {
		s.writeError(w, r, "Failed to clear status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.statuses.GetStatus(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeError(w, r, "Failed to fetch status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

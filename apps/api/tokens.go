package main

import (
	"encoding/json"
	"net/http"
)

type TokenRequest struct {
	Token string `json:"token"`
}

// handleSetToken records the caller's current device token, replacing any
// previous one.
func (s *server) handleSetToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := s.tokens.SetToken(r.Context(), userID(r), req.Token); err != nil {
		s.writeError(w, r, "Failed to save token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

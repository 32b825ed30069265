package main

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type LoginRequest struct {
	UserID string `json:"user_id"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	token, err := s.auth.GenerateToken(req.UserID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// handleHistory returns a room's messages, newest first.
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	room, err := s.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, "Failed to load room", err)
		return
	}
	if !isMember(room, userID(r)) {
		http.Error(w, "Not a member of this room", http.StatusForbidden)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	messages, err := s.messages.ListMessages(r.Context(), roomID, limit)
	if err != nil {
		s.writeError(w, r, "Failed to retrieve history", err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

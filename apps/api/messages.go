package main

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/model"
)

type CreateMessageRequest struct {
	ReceiverID string            `json:"receiverId"`
	Type       model.MessageType `json:"type"`
	Content    string            `json:"content"`
	Caption    string            `json:"caption,omitempty"`
}

// handleCreateMessage stores a message from the caller and emits the
// created event the notification function listens for.
func (s *server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	sender := userID(r)

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	room, err := s.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, "Failed to load room", err)
		return
	}
	if !isMember(room, sender) {
		http.Error(w, "Not a member of this room", http.StatusForbidden)
		return
	}

	id := s.ids.Generate()
	msg := model.Message{
		ID:         id.String(),
		RoomID:     roomID,
		SenderID:   sender,
		ReceiverID: req.ReceiverID,
		Type:       req.Type,
		Content:    req.Content,
		Caption:    req.Caption,
		Timestamp:  id.Time().UTC(),
	}
	if err := s.messages.SaveMessage(r.Context(), &msg); err != nil {
		s.writeError(w, r, "Failed to save message", err)
		return
	}

	ev := model.MessageCreated{RoomID: roomID, MessageID: msg.ID, Message: msg, CreateTime: time.Now().UTC()}
	if err := s.events.PublishMessageCreated(r.Context(), ev); err != nil {
		// The message is stored; only its notification is lost.
		s.log.Error("failed to publish message created event", zap.String("room_id", roomID), zap.String("message_id", msg.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, msg)
}

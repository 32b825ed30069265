package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mahaj/carechat/pkg/model"
)

type CreateRoomRequest struct {
	ID          string `json:"id,omitempty"`
	DoctorID    string `json:"doctorId"`
	PatientID   string `json:"patientId"`
	DoctorName  string `json:"doctorName"`
	PatientName string `json:"patientName"`
}

func isMember(room *model.ChatRoom, userID string) bool {
	return userID != "" && (room.DoctorID == userID || room.PatientID == userID)
}

func (s *server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DoctorID == "" || req.PatientID == "" {
		http.Error(w, "doctorId and patientId are required", http.StatusBadRequest)
		return
	}

	room := model.ChatRoom{
		ID:          req.ID,
		DoctorID:    req.DoctorID,
		PatientID:   req.PatientID,
		DoctorName:  req.DoctorName,
		PatientName: req.PatientName,
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if !isMember(&room, userID(r)) {
		http.Error(w, "Rooms can only be created by one of their members", http.StatusForbidden)
		return
	}

	if err := s.rooms.CreateRoom(r.Context(), &room); err != nil {
		s.writeError(w, r, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// handleListRooms returns every room the caller is part of, as doctor or as
// patient.
func (s *server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	ids, err := s.roomIDsFor(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "Failed to list rooms", err)
		return
	}

	rooms := make([]*model.ChatRoom, 0, len(ids))
	for _, id := range ids {
		room, err := s.rooms.GetRoom(r.Context(), id)
		if err != nil {
			s.writeError(w, r, "Failed to load room", err)
			return
		}
		rooms = append(rooms, room)
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *server) roomIDsFor(ctx context.Context, user string) ([]string, error) {
	var asDoctor, asPatient []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		asDoctor, err = s.rooms.RoomIDsByRole(gctx, model.RoleDoctor, user)
		return err
	})
	g.Go(func() (err error) {
		asPatient, err = s.rooms.RoomIDsByRole(gctx, model.RolePatient, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(asDoctor)+len(asPatient))
	var ids []string
	for _, id := range append(asDoctor, asPatient...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

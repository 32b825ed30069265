package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gocql/gocql"

	"github.com/mahaj/carechat/pkg/db"
	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

type ScyllaRooms struct {
	db *db.Session
}

func NewScyllaRooms(session *db.Session) *ScyllaRooms {
	return &ScyllaRooms{db: session}
}

func (s *ScyllaRooms) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	room := model.ChatRoom{ID: roomID}
	err := s.db.Query(`SELECT doctor_id, patient_id, doctor_name, patient_name, is_doctor_online, is_patient_online, doctor_last_seen, patient_last_seen
		FROM chat_rooms WHERE id = ?`, roomID).WithContext(ctx).
		Scan(&room.DoctorID, &room.PatientID, &room.DoctorName, &room.PatientName,
			&room.IsDoctorOnline, &room.IsPatientOnline, &room.DoctorLastSeen, &room.PatientLastSeen)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *ScyllaRooms) RoomIDsByRole(ctx context.Context, role model.Role, userID string) ([]string, error) {
	col, err := roleColumn(role, "doctor_id", "patient_id")
	if err != nil {
		return nil, err
	}
	// doctor_id and patient_id carry secondary indexes, see db.EnsureSchema.
	iter := s.db.Query(`SELECT id FROM chat_rooms WHERE `+col+` = ?`, userID).WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *ScyllaRooms) CommitPresence(ctx context.Context, writes []model.PresenceWrite) error {
	stmts, err := presenceStatements(writes)
	if err != nil || len(stmts) == 0 {
		return err
	}
	batch := s.db.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, st := range stmts {
		batch.Query(st.stmt, st.args...)
	}
	return s.db.ExecuteBatch(batch)
}

type cqlStatement struct {
	stmt string
	args []interface{}
}

// presenceStatements pairs each online flag with a coordinator-side
// lastSeen stamp for the same role.
func presenceStatements(writes []model.PresenceWrite) ([]cqlStatement, error) {
	stmts := make([]cqlStatement, 0, len(writes))
	for _, w := range writes {
		online, seen, err := presenceFields(w.Role, "is_doctor_online", "doctor_last_seen", "is_patient_online", "patient_last_seen")
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, cqlStatement{
			stmt: `UPDATE chat_rooms SET ` + online + ` = ?, ` + seen + ` = toTimestamp(now()) WHERE id = ?`,
			args: []interface{}{w.IsOnline, w.RoomID},
		})
	}
	return stmts, nil
}

func (s *ScyllaRooms) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	return s.db.Query(`INSERT INTO chat_rooms (id, doctor_id, patient_id, doctor_name, patient_name, is_doctor_online, is_patient_online)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.DoctorID, room.PatientID, room.DoctorName, room.PatientName, room.IsDoctorOnline, room.IsPatientOnline).
		WithContext(ctx).Exec()
}

type ScyllaMessages struct {
	db *db.Session
}

func NewScyllaMessages(session *db.Session) *ScyllaMessages {
	return &ScyllaMessages{db: session}
}

func (s *ScyllaMessages) SaveMessage(ctx context.Context, msg *model.Message) error {
	id, err := strconv.ParseInt(msg.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: message id %q", errs.ErrBadRequest, msg.ID)
	}
	return s.db.Query(`INSERT INTO messages (room_id, id, sender_id, receiver_id, type, content, caption, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.RoomID, id, msg.SenderID, msg.ReceiverID, string(msg.Type), msg.Content, msg.Caption, msg.Timestamp).
		WithContext(ctx).Exec()
}

// ListMessages returns the newest messages of a room first.
func (s *ScyllaMessages) ListMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	iter := s.db.Query(`SELECT id, sender_id, receiver_id, type, content, caption, timestamp
		FROM messages WHERE room_id = ? LIMIT ?`, roomID, limit).WithContext(ctx).Iter()

	var messages []model.Message
	var (
		id                        int64
		senderID, receiverID, typ string
		content, caption          string
		timestamp                 time.Time
	)
	for iter.Scan(&id, &senderID, &receiverID, &typ, &content, &caption, &timestamp) {
		messages = append(messages, model.Message{
			ID:         strconv.FormatInt(id, 10),
			RoomID:     roomID,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Type:       model.MessageType(typ),
			Content:    content,
			Caption:    caption,
			Timestamp:  timestamp,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return messages, nil
}

func roleColumn(role model.Role, doctor, patient string) (string, error) {
	switch role {
	case model.RoleDoctor:
		return doctor, nil
	case model.RolePatient:
		return patient, nil
	}
	return "", fmt.Errorf("%w: role %q", errs.ErrBadRequest, role)
}

package store

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

const (
	roomsCollection    = "chatRooms"
	messagesCollection = "messages"
	tokensCollection   = "userTokens"
)

// Firestore serves rooms, messages and tokens from the collections the
// mobile client writes to directly.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	snap, err := f.client.Collection(roomsCollection).Doc(roomID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	var room model.ChatRoom
	if err := snap.DataTo(&room); err != nil {
		return nil, err
	}
	room.ID = snap.Ref.ID
	return &room, nil
}

func (f *Firestore) RoomIDsByRole(ctx context.Context, role model.Role, userID string) ([]string, error) {
	field, err := roleColumn(role, "doctorId", "patientId")
	if err != nil {
		return nil, err
	}
	iter := f.client.Collection(roomsCollection).Where(field, "==", userID).Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (f *Firestore) CommitPresence(ctx context.Context, writes []model.PresenceWrite) error {
	updates, err := presenceUpdates(writes)
	if err != nil || len(updates) == 0 {
		return err
	}
	batch := f.client.Batch()
	rooms := f.client.Collection(roomsCollection)
	for _, u := range updates {
		batch.Update(rooms.Doc(u.roomID), u.fields)
	}
	_, err = batch.Commit(ctx)
	return err
}

type roomUpdate struct {
	roomID string
	fields []firestore.Update
}

func presenceUpdates(writes []model.PresenceWrite) ([]roomUpdate, error) {
	updates := make([]roomUpdate, 0, len(writes))
	for _, w := range writes {
		online, seen, err := presenceFields(w.Role, "isDoctorOnline", "doctorLastSeen", "isPatientOnline", "patientLastSeen")
		if err != nil {
			return nil, err
		}
		updates = append(updates, roomUpdate{roomID: w.RoomID, fields: []firestore.Update{
			{Path: online, Value: w.IsOnline},
			{Path: seen, Value: firestore.ServerTimestamp},
		}})
	}
	return updates, nil
}

func (f *Firestore) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	_, err := f.client.Collection(roomsCollection).Doc(room.ID).Create(ctx, room)
	return err
}

func (f *Firestore) GetToken(ctx context.Context, userID string) (string, error) {
	snap, err := f.client.Collection(tokensCollection).Doc(userID).Get(ctx)
	if err != nil {
		return "", notFound(err)
	}
	var rec model.TokenRecord
	if err := snap.DataTo(&rec); err != nil {
		return "", err
	}
	return rec.Token, nil
}

func (f *Firestore) SetToken(ctx context.Context, userID, token string) error {
	_, err := f.client.Collection(tokensCollection).Doc(userID).Set(ctx, map[string]interface{}{"token": token}, firestore.MergeAll)
	return err
}

func (f *Firestore) SaveMessage(ctx context.Context, msg *model.Message) error {
	_, err := f.client.Collection(roomsCollection).Doc(msg.RoomID).Collection(messagesCollection).Doc(msg.ID).Create(ctx, msg)
	return err
}

func (f *Firestore) ListMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	snaps, err := f.client.Collection(roomsCollection).Doc(roomID).Collection(messagesCollection).
		OrderBy("timestamp", firestore.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	messages := make([]model.Message, 0, len(snaps))
	for _, snap := range snaps {
		var m model.Message
		if err := snap.DataTo(&m); err != nil {
			return nil, err
		}
		m.ID = snap.Ref.ID
		m.RoomID = roomID
		messages = append(messages, m)
	}
	return messages, nil
}

func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return errs.ErrNotFound
	}
	return err
}

// Package store holds the external stores the functions read and patch.
// Every backend reports a missing record as errs.ErrNotFound.
package store

import (
	"context"

	"github.com/mahaj/carechat/pkg/model"
)

type RoomReader interface {
	GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
}

// RoomQuerier finds the rooms in which userID holds role.
type RoomQuerier interface {
	RoomIDsByRole(ctx context.Context, role model.Role, userID string) ([]string, error)
}

// PresenceBatcher applies all writes as one atomic batch. An empty batch is
// a no-op.
type PresenceBatcher interface {
	CommitPresence(ctx context.Context, writes []model.PresenceWrite) error
}

type RoomStore interface {
	RoomReader
	RoomQuerier
	PresenceBatcher
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
}

type TokenReader interface {
	GetToken(ctx context.Context, userID string) (string, error)
}

type TokenStore interface {
	TokenReader
	SetToken(ctx context.Context, userID, token string) error
}

type MessageStore interface {
	SaveMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
}

// StatusStore is the per-user presence record. Writes return the value they
// replaced, nil if there was none.
type StatusStore interface {
	GetStatus(ctx context.Context, userID string) (*model.UserStatus, error)
	SetStatus(ctx context.Context, userID string, st model.UserStatus) (*model.UserStatus, error)
	ClearStatus(ctx context.Context, userID string) (*model.UserStatus, error)
}

package model

import "time"

// MessageCreated is emitted once per message written under a room.
type MessageCreated struct {
	RoomID     string    `json:"roomId"`
	MessageID  string    `json:"messageId"`
	Message    Message   `json:"message"`
	CreateTime time.Time `json:"createTime"`
}

// StatusUpdated carries the before and after snapshots of a presence record.
// Either side is nil when the record did not exist or was removed.
type StatusUpdated struct {
	UserID     string      `json:"userId"`
	Before     *UserStatus `json:"before"`
	After      *UserStatus `json:"after"`
	UpdateTime time.Time   `json:"updateTime"`
}

package model

import "time"

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
)

// Message is a document under chatRooms/{roomId}/messages. It is immutable
// once written.
type Message struct {
	ID         string      `json:"id,omitempty" firestore:"-" bson:"_id,omitempty"`
	RoomID     string      `json:"roomId,omitempty" firestore:"-" bson:"roomId"`
	SenderID   string      `json:"senderId" firestore:"senderId" bson:"senderId"`
	ReceiverID string      `json:"receiverId,omitempty" firestore:"receiverId,omitempty" bson:"receiverId,omitempty"`
	Type       MessageType `json:"type" firestore:"type" bson:"type"`
	Content    string      `json:"content" firestore:"content" bson:"content"`
	Caption    string      `json:"caption,omitempty" firestore:"caption,omitempty" bson:"caption,omitempty"`
	Timestamp  time.Time   `json:"timestamp" firestore:"timestamp" bson:"timestamp"`
}

package model

// UserStatus is the value stored at userStatus/{userId}.
type UserStatus struct {
	IsOnline bool  `json:"isOnline"`
	LastSeen int64 `json:"lastSeen,omitempty"`
}

// TokenRecord maps a user to the push token of their current device.
type TokenRecord struct {
	UserID string `json:"userId" firestore:"-"`
	Token  string `json:"token" firestore:"token"`
}

package model

const DefaultSound = "default"

type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type PushData struct {
	ChatRoomID  string `json:"chatRoomId"`
	ClickAction string `json:"click_action"`
	MessageType string `json:"messageType"`
	SenderID    string `json:"senderId"`
}

// PushPayload is the wire contract the mobile client parses.
type PushPayload struct {
	Notification PushNotification `json:"notification"`
	Data         PushData         `json:"data"`
}

// DataMap flattens Data into the string map push services expect.
func (p PushPayload) DataMap() map[string]string {
	return map[string]string{
		"chatRoomId":   p.Data.ChatRoomID,
		"click_action": p.Data.ClickAction,
		"messageType":  p.Data.MessageType,
		"senderId":     p.Data.SenderID,
	}
}

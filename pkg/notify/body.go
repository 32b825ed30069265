package notify

import (
	"unicode/utf8"

	"github.com/mahaj/carechat/pkg/model"
)

const (
	maxBodyLen = 100
	ellipsis   = "..."
)

// Body renders the notification text for a message.
func Body(msg *model.Message) string {
	var body string
	switch msg.Type {
	case model.TypeText:
		body = msg.Content
	case model.TypeImage:
		if msg.Caption != "" {
			body = "Photo: " + msg.Caption
		} else {
			body = "Sent you a photo"
		}
	case model.TypeAudio:
		body = "Sent you a voice message"
	case model.TypeDocument:
		body = "Sent you a document: " + msg.Content
	default:
		body = "New message"
	}
	return truncate(body)
}

// truncate caps s at maxBodyLen code points, ellipsis included. Characters
// outside the BMP count once, not as two UTF-16 units.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxBodyLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxBodyLen-len(ellipsis)]) + ellipsis
}

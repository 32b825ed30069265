package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/model"
)

// FCMSender delivers through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	log    *zap.Logger
}

func NewFCMSender(client *messaging.Client, log *zap.Logger) *FCMSender {
	return &FCMSender{client: client, log: log.Named("fcm")}
}

func (s *FCMSender) Send(ctx context.Context, token string, p model.PushPayload) error {
	id, err := s.client.Send(ctx, fcmMessage(token, p))
	if err != nil {
		if messaging.IsUnregistered(err) {
			s.log.Warn("stale registration token", zap.String("token", redact(token)))
		}
		return err
	}
	s.log.Debug("fcm accepted message", zap.String("message_id", id))
	return nil
}

func fcmMessage(token string, p model.PushPayload) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: p.Notification.Title,
			Body:  p.Notification.Body,
		},
		Data: p.DataMap(),
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Sound:       p.Notification.Sound,
				ClickAction: p.Data.ClickAction,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: p.Notification.Sound},
			},
		},
	}
}

// Package notify turns newly created chat messages into push notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/metrics"
	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/push"
	"github.com/mahaj/carechat/pkg/store"
)

type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeNoReceiver Outcome = "skipped_no_receiver"
	OutcomeNoRoom     Outcome = "skipped_no_room"
	OutcomeNoToken    Outcome = "skipped_no_token"
	OutcomeFailed     Outcome = "failed"
)

type Dispatcher struct {
	rooms       store.RoomReader
	tokens      store.TokenReader
	sender      push.Sender
	clickAction string
	log         *zap.Logger
}

func NewDispatcher(rooms store.RoomReader, tokens store.TokenReader, sender push.Sender, clickAction string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		rooms:       rooms,
		tokens:      tokens,
		sender:      sender,
		clickAction: clickAction,
		log:         log.Named("notify"),
	}
}

// Handle sends at most one push for ev. Missing data and delivery failures
// are logged and reported through the outcome only; the writer of the
// message never sees an error.
func (d *Dispatcher) Handle(ctx context.Context, ev model.MessageCreated) (out Outcome) {
	log := d.log.With(zap.String("room_id", ev.RoomID), zap.String("message_id", ev.MessageID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("notification handler panicked", zap.Any("panic", r))
			out = OutcomeFailed
		}
		metrics.Notifications.WithLabelValues(string(out)).Inc()
	}()

	msg := &ev.Message
	if msg.ReceiverID == "" {
		log.Info("no receiver id on message")
		return OutcomeNoReceiver
	}

	payload, token, out, err := d.prepare(ctx, ev.RoomID, msg)
	if err != nil {
		log.Error("error preparing notification", zap.Error(err))
		return OutcomeFailed
	}
	if out != "" {
		log.Info("notification skipped", zap.String("outcome", string(out)), zap.String("receiver_id", msg.ReceiverID))
		return out
	}

	if err := d.sender.Send(ctx, token, payload); err != nil {
		log.Error("error sending notification", zap.String("receiver_id", msg.ReceiverID), zap.Error(err))
		return OutcomeFailed
	}
	log.Info("notification sent", zap.String("receiver_id", msg.ReceiverID), zap.String("type", string(msg.Type)))
	return OutcomeSent
}

// prepare resolves the room and the receiver's token. A non-empty outcome
// means the message does not qualify and nothing should be sent.
func (d *Dispatcher) prepare(ctx context.Context, roomID string, msg *model.Message) (model.PushPayload, string, Outcome, error) {
	room, err := d.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.PushPayload{}, "", OutcomeNoRoom, nil
	}
	if err != nil {
		return model.PushPayload{}, "", "", fmt.Errorf("get room: %w", err)
	}

	senderName := room.NameOf(room.SenderRole(msg.SenderID))

	token, err := d.tokens.GetToken(ctx, msg.ReceiverID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && token == "") {
		return model.PushPayload{}, "", OutcomeNoToken, nil
	}
	if err != nil {
		return model.PushPayload{}, "", "", fmt.Errorf("get token: %w", err)
	}

	payload := model.PushPayload{
		Notification: model.PushNotification{
			Title: senderName,
			Body:  Body(msg),
			Sound: model.DefaultSound,
		},
		Data: model.PushData{
			ChatRoomID:  roomID,
			ClickAction: d.clickAction,
			MessageType: string(msg.Type),
			SenderID:    msg.SenderID,
		},
	}
	return payload, token, "", nil
}

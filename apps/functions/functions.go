package main

import (
	"context"

	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/notify"
)

type messageHandler interface {
	Handle(ctx context.Context, ev model.MessageCreated) notify.Outcome
}

type statusHandler interface {
	Handle(ctx context.Context, ev model.StatusUpdated) error
}

// functions holds the two store-triggered reactions.
type functions struct {
	notifier  messageHandler
	presences statusHandler
}

func newFunctions(n messageHandler, p statusHandler) *functions {
	return &functions{notifier: n, presences: p}
}

// sendChatNotification fires for chatRooms/{roomId}/messages/{messageId}
// creations.
func (f *functions) sendChatNotification(ctx context.Context, ev model.MessageCreated) {
	f.notifier.Handle(ctx, ev)
}

// updateOnlineStatus fires for userStatus/{userId} updates.
func (f *functions) updateOnlineStatus(ctx context.Context, ev model.StatusUpdated) error {
	return f.presences.Handle(ctx, ev)
}

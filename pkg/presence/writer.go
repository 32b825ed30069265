package presence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/store"
)

type StatusPublisher interface {
	PublishStatusUpdated(ctx context.Context, ev model.StatusUpdated) error
}

// Writer updates a user's presence record and emits the matching update
// event, the way the realtime store fires its trigger on every write. Only
// the store write can fail a call; once it lands, a lost event is logged.
type Writer struct {
	statuses store.StatusStore
	events   StatusPublisher
	now      func() time.Time
	log      *zap.Logger
}

func NewWriter(statuses store.StatusStore, events StatusPublisher, log *zap.Logger) *Writer {
	return &Writer{statuses: statuses, events: events, now: time.Now, log: log.Named("presence_writer")}
}

func (w *Writer) Set(ctx context.Context, userID string, online bool) (model.StatusUpdated, error) {
	now := w.now()
	after := model.UserStatus{IsOnline: online, LastSeen: now.UnixMilli()}
	before, err := w.statuses.SetStatus(ctx, userID, after)
	if err != nil {
		return model.StatusUpdated{}, fmt.Errorf("set status: %w", err)
	}
	ev := model.StatusUpdated{UserID: userID, Before: before, After: &after, UpdateTime: now}
	w.publish(ctx, ev)
	return ev, nil
}

// Clear removes the record. The resulting event has no after-value.
func (w *Writer) Clear(ctx context.Context, userID string) (model.StatusUpdated, error) {
	before, err := w.statuses.ClearStatus(ctx, userID)
	if err != nil {
		return model.StatusUpdated{}, fmt.Errorf("clear status: %w", err)
	}
	if before == nil {
		// Nothing was stored, so there is no update to report.
		return model.StatusUpdated{UserID: userID}, nil
	}
	ev := model.StatusUpdated{UserID: userID, Before: before, UpdateTime: w.now()}
	w.publish(ctx, ev)
	return ev, nil
}

func (w *Writer) publish(ctx context.Context, ev model.StatusUpdated) {
	if err := w.events.PublishStatusUpdated(ctx, ev); err != nil {
		// The status is stored; only its propagation to rooms is lost.
		w.log.Error("failed to publish status update", zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

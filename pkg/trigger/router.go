// Package trigger carries store-change events between the services that
// write the stores and the functions that react to them.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

type (
	MessageCreatedFunc func(ctx context.Context, ev model.MessageCreated)
	StatusUpdatedFunc  func(ctx context.Context, ev model.StatusUpdated) error
)

// Router binds topics to handlers. The message binding fires on every
// created message; the status binding fires only on updates of an existing
// record, so the first write for a user is not propagated.
type Router struct {
	messageTopic string
	statusTopic  string
	onMessage    MessageCreatedFunc
	onStatus     StatusUpdatedFunc
	log          *zap.Logger
}

func NewRouter(messageTopic string, onMessage MessageCreatedFunc, statusTopic string, onStatus StatusUpdatedFunc, log *zap.Logger) *Router {
	return &Router{
		messageTopic: messageTopic,
		statusTopic:  statusTopic,
		onMessage:    onMessage,
		onStatus:     onStatus,
		log:          log.Named("trigger"),
	}
}

func (r *Router) Topics() []string {
	return []string{r.messageTopic, r.statusTopic}
}

// Route decodes value according to topic and invokes the bound handler.
// Decode failures are reported as errs.ErrBadRequest.
func (r *Router) Route(ctx context.Context, topic string, value []byte) error {
	switch topic {
	case r.messageTopic:
		var ev model.MessageCreated
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("%w: message created event: %v", errs.ErrBadRequest, err)
		}
		r.onMessage(ctx, ev)
		return nil

	case r.statusTopic:
		var ev model.StatusUpdated
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("%w: status updated event: %v", errs.ErrBadRequest, err)
		}
		if ev.Before == nil {
			r.log.Debug("status record created, not an update", zap.String("user_id", ev.UserID))
			return nil
		}
		return r.onStatus(ctx, ev)

	default:
		return fmt.Errorf("%w: no binding for topic %q", errs.ErrBadRequest, topic)
	}
}

// Package presence fans a user's online status out to the chat rooms that
// reference them.
package presence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mahaj/carechat/pkg/metrics"
	"github.com/mahaj/carechat/pkg/model"
	"github.com/mahaj/carechat/pkg/store"
)

type RoomPresence interface {
	store.RoomQuerier
	store.PresenceBatcher
}

type Propagator struct {
	rooms RoomPresence
	log   *zap.Logger
}

func NewPropagator(rooms RoomPresence, log *zap.Logger) *Propagator {
	return &Propagator{rooms: rooms, log: log.Named("presence")}
}

// Handle mirrors ev.After onto every room where the user is doctor or
// patient, in a single batch. A failed commit is returned to the caller and
// not retried; rooms keep the old status until the user's next change.
func (p *Propagator) Handle(ctx context.Context, ev model.StatusUpdated) error {
	if ev.After == nil {
		metrics.PresenceUpdates.WithLabelValues("skipped").Inc()
		return nil
	}
	log := p.log.With(zap.String("user_id", ev.UserID), zap.Bool("is_online", ev.After.IsOnline))

	var doctorRooms, patientRooms []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := p.rooms.RoomIDsByRole(gctx, model.RoleDoctor, ev.UserID)
		doctorRooms = ids
		return err
	})
	g.Go(func() error {
		ids, err := p.rooms.RoomIDsByRole(gctx, model.RolePatient, ev.UserID)
		patientRooms = ids
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.PresenceUpdates.WithLabelValues("failed").Inc()
		return fmt.Errorf("query rooms for %s: %w", ev.UserID, err)
	}

	writes := Writes(doctorRooms, patientRooms, ev.After.IsOnline)
	if err := p.rooms.CommitPresence(ctx, writes); err != nil {
		metrics.PresenceUpdates.WithLabelValues("failed").Inc()
		return fmt.Errorf("commit presence batch for %s: %w", ev.UserID, err)
	}

	metrics.PresenceUpdates.WithLabelValues("committed").Inc()
	metrics.PresenceRoomsUpdated.WithLabelValues(string(model.RoleDoctor)).Add(float64(len(doctorRooms)))
	metrics.PresenceRoomsUpdated.WithLabelValues(string(model.RolePatient)).Add(float64(len(patientRooms)))
	log.Info("presence propagated", zap.Int("doctor_rooms", len(doctorRooms)), zap.Int("patient_rooms", len(patientRooms)))
	return nil
}

// Writes builds the batch for one status change. A room that shows up in
// both lists gets both writes.
func Writes(doctorRooms, patientRooms []string, online bool) []model.PresenceWrite {
	writes := make([]model.PresenceWrite, 0, len(doctorRooms)+len(patientRooms))
	for _, id := range doctorRooms {
		writes = append(writes, model.PresenceWrite{RoomID: id, Role: model.RoleDoctor, IsOnline: online})
	}
	for _, id := range patientRooms {
		writes = append(writes, model.PresenceWrite{RoomID: id, Role: model.RolePatient, IsOnline: online})
	}
	return writes
}

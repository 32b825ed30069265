package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/metrics"
	"github.com/mahaj/carechat/pkg/model"
)

const statusWriteTimeout = 5 * time.Second

type presenceSetter interface {
	Set(ctx context.Context, userID string, online bool) (model.StatusUpdated, error)
}

type statusChange struct {
	client *Client
	online bool
}

// Hub tracks live connections per user. A user goes online with their first
// connection and offline when the last one closes.
type Hub struct {
	users      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	statuses   chan statusChange
	done       chan struct{}
	presence   presenceSetter
	log        *zap.Logger
}

func NewHub(presence presenceSetter, log *zap.Logger) *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		statuses:   make(chan statusChange),
		done:       make(chan struct{}),
		presence:   presence,
		log:        log.Named("hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for user, clients := range h.users {
				for client := range clients {
					close(client.send)
				}
				h.setStatus(user, false)
			}
			h.users = make(map[string]map[*Client]bool)
			metrics.GatewayConnections.Set(0)
			return

		case client := <-h.register:
			clients := h.users[client.UserID]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.users[client.UserID] = clients
			}
			clients[client] = true
			metrics.GatewayConnections.Inc()
			h.log.Info("client registered", zap.String("user_id", client.UserID), zap.String("conn_id", client.ConnID), zap.Int("connections", len(clients)))
			if len(clients) == 1 {
				h.setStatus(client.UserID, true)
			}

		case client := <-h.unregister:
			clients, ok := h.users[client.UserID]
			if !ok || !clients[client] {
				continue
			}
			delete(clients, client)
			close(client.send)
			metrics.GatewayConnections.Dec()
			h.log.Info("client unregistered", zap.String("user_id", client.UserID), zap.String("conn_id", client.ConnID), zap.Int("connections", len(clients)))
			if len(clients) == 0 {
				delete(h.users, client.UserID)
				h.setStatus(client.UserID, false)
			}

		case change := <-h.statuses:
			if !h.users[change.client.UserID][change.client] {
				continue
			}
			h.setStatus(change.client.UserID, change.online)
			h.ack(change.client, change.online)
		}
	}
}

// send hands v to the run loop unless it has already stopped.
func send[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) setStatus(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if _, err := h.presence.Set(ctx, userID, online); err != nil {
		h.log.Error("failed to write presence", zap.String("user_id", userID), zap.Bool("is_online", online), zap.Error(err))
	}
}

func (h *Hub) ack(c *Client, online bool) {
	b, err := json.Marshal(frame{Type: frameStatus, IsOnline: &online})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		h.log.Warn("client send buffer full, dropping ack", zap.String("conn_id", c.ConnID))
	}
}

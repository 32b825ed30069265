package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

const frameStatus = "status"

// frame is the only message shape exchanged on the socket. Clients send a
// status frame to go away or come back without disconnecting; the hub
// answers with the status it stored.
type frame struct {
	Type     string `json:"type"`
	IsOnline *bool  `json:"isOnline,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  *zap.Logger

	// Buffered channel of outbound messages.
	send chan []byte

	UserID string
	ConnID string
}

// readPump keeps the read deadline fresh and forwards status frames to the
// hub until the connection drops.
func (c *Client) readPump() {
	defer func() {
		send(c.hub, c.hub.unregister, c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", zap.Error(err))
			}
			break
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil || f.Type != frameStatus || f.IsOnline == nil {
			c.log.Debug("ignoring frame", zap.ByteString("frame", message))
			continue
		}
		if !send(c.hub, c.hub.statuses, statusChange{client: c, online: *f.IsOnline}) {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs authenticates the peer and registers its connection.
func serveWs(hub *Hub, issuer *auth.Issuer, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	claims, err := issuer.FromRequest(r)
	if err != nil {
		log.Info("unauthorized websocket request", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := &Client{
		hub:    hub,
		conn:   conn,
		log:    log.With(zap.String("user_id", claims.UserID), zap.String("conn_id", connID)),
		send:   make(chan []byte, 16),
		UserID: claims.UserID,
		ConnID: connID,
	}
	if !send(hub, hub.register, client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

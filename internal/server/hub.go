// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxClientFrame = 512
	sendBuffer     = 16
)

// ============================================================================
// CONNECTION
// ============================================================================

// Connection is one browser attached to the snapshot feed.
type Connection struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// ============================================================================
// HUB
// ============================================================================

// Hub fans snapshots out to every connection. All bookkeeping happens on
// the Run goroutine; a connection whose buffer is full is dropped.
type Hub struct {
	conns      map[*Connection]struct{}
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub creates a hub. Run must be started before connections register.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:      make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte, 8),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
}

// Run serves registrations and broadcasts until ctx ends, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		for c := range h.conns {
			close(c.send)
		}
		h.conns = nil
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			h.conns[c] = struct{}{}
			h.logger.Debug("connection registered", zap.String("id", c.ID), zap.Int("connections", len(h.conns)))

		case c := <-h.unregister:
			if _, ok := h.conns[c]; ok {
				delete(h.conns, c)
				close(c.send)
				h.logger.Debug("connection unregistered", zap.String("id", c.ID))
			}

		case data := <-h.broadcast:
			for c := range h.conns {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("connection too slow, dropping", zap.String("id", c.ID))
					delete(h.conns, c)
					close(c.send)
				}
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// Attach wraps ws in a connection with first already queued and registers
// it. It returns nil when the hub has stopped.
func (h *Hub) Attach(ws *websocket.Conn, first []byte) *Connection {
	c := &Connection{
		ID:   uuid.NewString(),
		conn: ws,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	c.send <- first
	select {
	case h.register <- c:
		return c
	case <-h.done:
		return nil
	}
}

// Broadcast queues data for every connection. Older queued snapshots are
// superseded, so a full queue drops data instead of blocking the caller.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Debug("broadcast queue full, snapshot skipped")
	}
}

func (h *Hub) detach(c *Connection) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ============================================================================
// PUMPS
// ============================================================================

// Serve runs the connection's pumps until the browser goes away or the hub
// stops.
func (c *Connection) Serve() {
	go c.writePump()
	c.readPump()
}

// readPump discards client frames and detects disconnects.
func (c *Connection) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read", zap.String("id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump delivers queued snapshots and keeps the connection alive.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

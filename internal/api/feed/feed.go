// Package feed streams alerts to websocket clients. Each connection is a
// subscriber with id "ws:<uuid>" for as long as it stays open.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/albapepper/bosswatch/internal/notifications"
)

// Prefix is the subscriber id transport prefix handled by Hub.
const Prefix = "ws"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Registry is the subscriber set the hub joins connections to.
type Registry interface {
	Add(id string) bool
	Remove(id string) bool
}

// Message is the JSON frame written to clients.
type Message struct {
	Type  string               `json:"type"`
	ID    string               `json:"id,omitempty"`
	Text  string               `json:"text,omitempty"`
	Alert *notifications.Alert `json:"alert,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg Message, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(msg)
}

// Hub owns the open connections and implements notifications.Sender for them.
type Hub struct {
	registry Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub returns a hub joining connections to registry.
func NewHub(registry Registry, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and blocks until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	id := Prefix + ":" + uuid.NewString()
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.registry.Add(id)
	h.logger.Info("Feed client connected", "subscriber", id, "remote", r.RemoteAddr)

	defer func() {
		h.drop(id)
		conn.Close()
		h.logger.Info("Feed client disconnected", "subscriber", id)
	}()

	if err := c.write(Message{Type: "hello", ID: id}, time.Now().Add(writeWait)); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.ping(c, done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) ping(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	h.registry.Remove(id)
}

// Send writes one alert frame. A missing or broken connection is permanent.
func (h *Hub) Send(ctx context.Context, subscriber string, alert notifications.Alert) error {
	h.mu.RLock()
	c, ok := h.clients[subscriber]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("feed client %s is gone: %w", subscriber, notifications.ErrPermanent)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.write(Message{Type: "alert", Text: alert.Text(), Alert: &alert}, deadline); err != nil {
		c.conn.Close()
		return fmt.Errorf("write to %s: %v: %w", subscriber, err, notifications.ErrPermanent)
	}
	return nil
}

// Decode parses a frame; used by clients and tests.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

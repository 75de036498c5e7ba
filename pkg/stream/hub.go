// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package stream broadcasts generator samples to websocket clients and
// serves the latest sample as JSON.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"motiongen/pkg/log"
	"motiongen/pkg/sample"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
)

// Hub fans samples out to connected clients. WriteSample never blocks on
// a slow client; its messages are dropped instead.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[int64]*client
	nextID  int64
	closed  bool

	latest  atomic.Pointer[sample.Sample]
	dropped atomic.Uint64

	notifyMu sync.Mutex

	// OnClients, if set, is called with the current client count after
	// every change. Set it before serving.
	OnClients func(n int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[int64]*client),
		logger:  log.GetLogger("stream"),
	}
}

// SetLogger replaces the hub logger.
func (h *Hub) SetLogger(l *log.Logger) {
	h.logger = l
}

// WriteSample records s as the latest sample and queues it for every
// client.
func (h *Hub) WriteSample(s sample.Sample) error {
	h.latest.Store(&s)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.send(s) {
			h.dropped.Add(1)
		}
	}
	return nil
}

// Latest returns the most recent sample.
func (h *Hub) Latest() (sample.Sample, bool) {
	p := h.latest.Load()
	if p == nil {
		return sample.Sample{}, false
	}
	return *p, true
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were dropped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Register mounts /ws and /api/state on r.
func (h *Hub) Register(r *mux.Router) {
	r.HandleFunc("/ws", h.ServeWS)
	r.HandleFunc("/api/state", h.ServeState).Methods(http.MethodGet)
}

// ServeState writes the latest sample as JSON, or 204 before the first.
func (h *Hub) ServeState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s)
}

// ServeWS upgrades the request and streams samples until the client goes
// away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.nextID++
	c := &client{
		id:     h.nextID,
		conn:   conn,
		sendCh: make(chan sample.Sample, sendBuffer),
		done:   make(chan struct{}),
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.WithFields(log.Fields{"client": c.id, "remote": r.RemoteAddr}).Info("client connected")
	h.notify()

	// New clients see the current state at once
	if s, ok := h.Latest(); ok {
		c.send(s)
	}

	go c.writePump(h.logger)
	c.readPump()

	h.remove(c)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[int64]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.notify()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.WithField("client", c.id).Info("client disconnected")
		h.notify()
	}
}

// notify calls are serialized so the last report is the current count.
func (h *Hub) notify() {
	if h.OnClients == nil {
		return
	}
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()
	h.OnClients(h.Clients())
}

type client struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan sample.Sample
	done   chan struct{}
	once   sync.Once
}

// send queues s. It returns false when the queue is full or the client
// has gone.
func (c *client) send(s sample.Sample) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- s:
		return true
	default:
		return false
	}
}

// close signals writePump, which sends the close frame and then closes the
// connection.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump discards client messages and keeps the read deadline fresh
// on pongs. It returns when the connection fails.
func (c *client) readPump() {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(logger *log.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case s := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(s); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.WithError(err).Debug("websocket write failed")
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return
		}
	}
}

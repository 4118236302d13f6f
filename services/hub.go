package services

import (
	"encoding/json"
	"sync"

	"github.com/bellapacxx/guba-backend/metrics"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gorilla/websocket"
)

const (
	EventBalanceUpdated = "balance_updated"
	EventPostCreated    = "post_created"
	EventPostClosed     = "post_closed"
)

const sendBuffer = 32

// Event is what connected clients receive as a JSON text frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notifier pushes events to connected clients. Delivery is best effort.
type Notifier interface {
	NotifyUser(userID string, ev Event)
	Broadcast(ev Event)
}

// Hub tracks websocket clients per user. A user may be connected from
// several devices at once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

var _ Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register attaches a freshly upgraded connection and starts its pumps.
func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	c := &Client{
		userID: userID,
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, sendBuffer),
	}
	h.addClient(c)

	go c.writePump()
	go c.readPump()
	return c
}

// -------------------- Client management --------------------
func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WSClientConnected()
	logger.Debugf("[Hub] user %s connected (devices=%d)", c.userID, h.userClientCount(c.userID))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if ok {
		if _, present := set[c]; !present {
			ok = false
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	if ok {
		c.Close()
		metrics.WSClientDisconnected()
		logger.Debugf("[Hub] user %s disconnected", c.userID)
	}
}

func (h *Hub) userClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// -------------------- Delivery --------------------
func (h *Hub) NotifyUser(userID string, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[Hub] marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.deliver(targets, b)
}

func (h *Hub) Broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[Hub] marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	var targets []*Client
	for _, set := range h.clients {
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, b)
}

// deliver never blocks: a client whose buffer is full is disconnected.
func (h *Hub) deliver(targets []*Client, b []byte) {
	for _, c := range targets {
		if !c.enqueue(b) {
			logger.Warnf("[Hub] dropping slow client of user %s", c.userID)
			h.removeClient(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.Close()
			metrics.WSClientDisconnected()
		}
	}
}

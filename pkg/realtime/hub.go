package realtime

import (
	"errors"
	"log"
	"sync"
)

// ErrTooManyConnections is returned by Join when the user is at the connection cap
var ErrTooManyConnections = errors.New("too many connections for this user")

// Message is one event pushed to a user's topic
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is a transport-level connection able to carry messages to one client
type Conn interface {
	Send(msg Message) error
	Close() error
}

// Subscriber is a connection joined to a user's topic
type Subscriber struct {
	conn Conn
}

// Hub is the per-user topic registry: userID -> set of subscribers.
// A user may hold several connections (browser tabs, devices).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
	maxPerUser  int
}

func NewHub(maxPerUser int) *Hub {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]struct{}),
		maxPerUser:  maxPerUser,
	}
}

// Join adds conn to userID's topic. Authentication happens before this call.
func (h *Hub) Join(userID string, conn Conn) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.subscribers[userID] = subs
	}
	if len(subs) >= h.maxPerUser {
		log.Printf("[Realtime] User %s exceeded max connections (%d)", userID, h.maxPerUser)
		return nil, ErrTooManyConnections
	}

	sub := &Subscriber{conn: conn}
	subs[sub] = struct{}{}
	return sub, nil
}

// Leave removes the subscriber and closes its connection. Leaving twice is a no-op.
func (h *Hub) Leave(userID string, sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	_, member := subs[sub]
	if ok && member {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, userID)
		}
	}
	h.mu.Unlock()

	if member {
		_ = sub.conn.Close()
	}
}

// Publish sends msg to every connection of userID and reports how many accepted it.
// Delivery is best-effort, a failing connection is dropped from the topic.
func (h *Hub) Publish(userID string, msg Message) int {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers[userID]))
	for sub := range h.subscribers[userID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if err := sub.conn.Send(msg); err != nil {
			log.Printf("[Realtime] Failed to deliver %s to user %s: %v", msg.Event, userID, err)
			h.Leave(userID, sub)
			continue
		}
		delivered++
	}
	return delivered
}

// Subscribers returns the number of connections joined to userID's topic
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[userID])
}

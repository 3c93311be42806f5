package notifier

import (
	"log"
	"sync"
	"time"

	"dispatch/internal/domain"
)

// Role identifies which side of an order a connection belongs to.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Event names pushed over the live channel.
const (
	EventTaxiFinding    = "taxiFinding"
	EventTaxiFound      = "taxiFound"
	EventArrive         = "arrive"
	EventStart          = "start"
	EventComplete       = "complete"
	EventCancelUser     = "cancelUser"
	EventCancelDriver   = "cancelDriver"
	EventDriverLocation = "driverLocation"
	EventCarLocation    = "carLocation"
)

// Event is one named message carrying an order id and a free-form payload.
type Event struct {
	Name    string         `json:"event"`
	OrderID string         `json:"order_id"`
	Payload map[string]any `json:"payload,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

type connKey struct {
	userID string
	role   Role
}

// Conn is one live connection. Events arrive on the channel returned by
// Events; the channel is closed when the connection is replaced or
// unregistered.
type Conn struct {
	key connKey
	ch  chan Event
}

// Events returns the connection's receive channel.
func (c *Conn) Events() <-chan Event {
	return c.ch
}

// connBuffer bounds how far a slow consumer may lag. Delivery is
// at-most-once: events past the buffer are dropped, not queued.
const connBuffer = 16

// Hub maintains at most one live connection per (user, role) pair and
// delivers best-effort events to them. All registry access is guarded by
// the mutex; handlers and the materializer publish concurrently.
type Hub struct {
	mu    sync.RWMutex
	conns map[connKey]*Conn
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[connKey]*Conn)}
}

// Register opens a connection for the given identity, replacing (and
// closing) any previous one for the same (user, role).
func (h *Hub) Register(userID string, role Role) *Conn {
	key := connKey{userID: userID, role: role}
	conn := &Conn{key: key, ch: make(chan Event, connBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.conns[key]; ok {
		close(old.ch)
	}
	h.conns[key] = conn
	return conn
}

// Unregister closes the connection if it is still the current one for
// its identity. A connection already replaced by Register is left alone.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.conns[conn.key]; ok && current == conn {
		close(conn.ch)
		delete(h.conns, conn.key)
	}
}

// Publish delivers an event to the identity's connection, if any.
// Returns false when no connection exists or its buffer is full.
func (h *Hub) Publish(userID string, role Role, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.conns[connKey{userID: userID, role: role}]
	if !ok {
		return false
	}

	select {
	case conn.ch <- event:
		return true
	default:
		// Slow consumer: drop rather than block a handler.
		return false
	}
}

// NotifyOrder delivers an event to the order's rider and, if assigned,
// its driver. Recipients are resolved from the order itself so routing
// can never disagree with persisted state. Missing connections are
// skipped silently.
func (h *Hub) NotifyOrder(order *domain.Order, name string, payload map[string]any) {
	event := Event{
		Name:    name,
		OrderID: order.ID,
		Payload: payload,
		SentAt:  time.Now(),
	}

	if !h.Publish(order.RiderID, RoleRider, event) {
		log.Printf("[EVENT] dropped %s for rider %s (order %s)", name, order.RiderID, order.ID)
	}
	if order.DriverID != "" {
		if !h.Publish(order.DriverID, RoleDriver, event) {
			log.Printf("[EVENT] dropped %s for driver %s (order %s)", name, order.DriverID, order.ID)
		}
	}
}

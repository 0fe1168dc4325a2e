// Package hub fans payment events out to connected staff clients.
package hub

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"

	"github.com/google/uuid"
)

// Event is the routing view of one payment event.
type Event struct {
	Type       string
	PaymentID  string
	CustomerID string
}

// Filter narrows a client's feed. Zero fields match everything.
type Filter struct {
	Types      []string
	PaymentID  string
	CustomerID string
}

func (f Filter) Matches(event Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, event.Type) {
		return false
	}
	if f.PaymentID != "" && f.PaymentID != event.PaymentID {
		return false
	}
	if f.CustomerID != "" && f.CustomerID != event.CustomerID {
		return false
	}
	return true
}

type Client struct {
	ID     string
	UserID string
	Send   chan []byte
	filter Filter
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) SetFilter(client *Client, filter Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.filter = filter
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues payload for every client whose filter matches event and
// returns how many received it. Slow clients lose the message.
func (h *Hub) Broadcast(payload []byte, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, client := range h.clients {
		if !client.filter.Matches(event) {
			continue
		}
		select {
		case client.Send <- payload:
			delivered++
		default:
			h.logger.Warn("drop message for slow client", "client_id", client.ID, "payment_id", event.PaymentID)
		}
	}
	return delivered
}

// FilterMessage is what clients send to change their feed:
//
//	{"action":"subscribe","types":["payment.verified"],"customer_id":"..."}
//	{"action":"unsubscribe"}
type FilterMessage struct {
	Action     string   `json:"action"`
	Types      []string `json:"types"`
	PaymentID  string   `json:"payment_id"`
	CustomerID string   `json:"customer_id"`
}

var eventTypes = []string{models.EventPaymentCreated, models.EventPaymentVerified, models.EventPaymentSubmitted}

// ParseFilter decodes a FilterMessage into the filter it asks for.
// Unknown actions, unknown event types and malformed ids are rejected.
// Unsubscribe resets the client to the full feed.
func ParseFilter(data []byte) (Filter, bool) {
	var msg FilterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Filter{}, false
	}
	switch msg.Action {
	case "unsubscribe":
		return Filter{}, true
	case "subscribe":
	default:
		return Filter{}, false
	}
	for _, t := range msg.Types {
		if !slices.Contains(eventTypes, t) {
			return Filter{}, false
		}
	}
	for _, id := range []string{msg.PaymentID, msg.CustomerID} {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return Filter{}, false
		}
	}
	return Filter{Types: msg.Types, PaymentID: msg.PaymentID, CustomerID: msg.CustomerID}, true
}

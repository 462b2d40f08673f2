package websocket

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when sending to a closed subscriber
	ErrClientClosed = errors.New("client is closed")
	// ErrSlowClient is returned when a subscriber's send buffer is full
	ErrSlowClient = errors.New("client send buffer full")
	// ErrHubClosed is returned when registering after Close
	ErrHubClosed = errors.New("hub is closed")
)

// Subscriber is one open stream. Admin principals receive every user's events.
type Subscriber interface {
	ID() string
	Principal() *middleware.Principal
	Send(data []byte) error
	Close() error
}

// Hub fans loan events out to subscribers. It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[string]Subscriber
	admins map[string]Subscriber
	closed bool
	seq    atomic.Uint64
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{
		byUser: make(map[uuid.UUID]map[string]Subscriber),
		admins: make(map[string]Subscriber),
	}
}

// Register adds a subscriber to its owner's feed, or to the admin feed
func (h *Hub) Register(sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	p := sub.Principal()
	if p.IsAdmin() {
		h.admins[sub.ID()] = sub
	} else {
		if h.byUser[p.UserID] == nil {
			h.byUser[p.UserID] = make(map[string]Subscriber)
		}
		h.byUser[p.UserID][sub.ID()] = sub
	}

	log.Debug().
		Str("user_id", p.UserID.String()).
		Str("client_id", sub.ID()).
		Bool("admin", p.IsAdmin()).
		Msg("Subscriber registered")
	return nil
}

// Unregister removes a subscriber. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub Subscriber) bool {
	p := sub.Principal()
	if p.IsAdmin() {
		if _, ok := h.admins[sub.ID()]; !ok {
			return false
		}
		delete(h.admins, sub.ID())
		return true
	}

	subs, ok := h.byUser[p.UserID]
	if !ok {
		return false
	}
	if _, ok := subs[sub.ID()]; !ok {
		return false
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(h.byUser, p.UserID)
	}
	return true
}

// Publish stamps the next sequence number on event and delivers it to the
// loan owner's subscribers and every admin subscriber. A subscriber that
// cannot take the message is dropped and closed.
func (h *Hub) Publish(event Event) {
	event.Seq = h.seq.Add(1)

	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("loan_id", event.LoanID.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.byUser[event.UserID])+len(h.admins))
	for _, sub := range h.byUser[event.UserID] {
		targets = append(targets, sub)
	}
	for _, sub := range h.admins {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var dropped []Subscriber
	for _, sub := range targets {
		if err := sub.Send(data); err != nil {
			log.Warn().
				Err(err).
				Str("client_id", sub.ID()).
				Uint64("seq", event.Seq).
				Msg("Dropping subscriber")
			dropped = append(dropped, sub)
		}
	}

	if len(dropped) > 0 {
		h.mu.Lock()
		for _, sub := range dropped {
			h.removeLocked(sub)
		}
		h.mu.Unlock()
		for _, sub := range dropped {
			_ = sub.Close()
		}
	}

	log.Debug().
		Str("event_type", event.Type).
		Uint64("seq", event.Seq).
		Int("delivered", len(targets)-len(dropped)).
		Msg("Published event")
}

// LastSeq returns the sequence number of the most recent event
func (h *Hub) LastSeq() uint64 {
	return h.seq.Load()
}

// ClientCount returns the number of non-admin streams open for a user
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// AdminCount returns the number of admin streams
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}

// TotalClientCount returns the number of open streams
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := len(h.admins)
	for _, subs := range h.byUser {
		total += len(subs)
	}
	return total
}

// Close disconnects every subscriber and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := make([]Subscriber, 0, len(h.admins))
	for _, sub := range h.admins {
		all = append(all, sub)
	}
	for _, subs := range h.byUser {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	h.byUser = make(map[uuid.UUID]map[string]Subscriber)
	h.admins = make(map[string]Subscriber)
	h.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	log.Info().Int("subscribers", len(all)).Msg("WebSocket hub closed")
}

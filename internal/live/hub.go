// Package live pushes newly registered developers to connected clients whose last
// search would have returned them.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rs/xid"

	"github.com/devradar/backend/internal/models"
)

const (
	EventNewDev = "new-dev"

	defaultQueueSize = 16
)

// Event is the frame written to subscribers.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Subscription is the per-connection record of the client's last search.
// The hub owns the query and the send queue; the connection only reads Messages.
type Subscription struct {
	ID    string
	query models.SearchQuery
	send  chan []byte
}

// Messages is closed when the hub drops the subscription.
func (s *Subscription) Messages() <-chan []byte {
	return s.send
}

type Hub struct {
	mu        sync.Mutex
	subs      map[string]*Subscription
	queueSize int
	closed    bool
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:      make(map[string]*Subscription),
		queueSize: defaultQueueSize,
		logger:    logger,
	}
}

// Subscribe registers a new connection. On a closed hub the returned subscription
// has its queue already closed.
func (h *Hub) Subscribe(q models.SearchQuery) *Subscription {
	sub := &Subscription{
		ID:    xid.New().String(),
		query: q,
		send:  make(chan []byte, h.queueSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.send)
		return sub
	}
	h.subs[sub.ID] = sub
	h.logger.Debug("live subscriber connected",
		slog.String("id", sub.ID),
		slog.Any("techs", q.Techs),
		slog.Int("subscribers", len(h.subs)),
	)
	return sub
}

// Update replaces the search parameters of an existing subscription.
func (h *Hub) Update(id string, q models.SearchQuery) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return false
	}
	sub.query = q
	return true
}

// Query returns the current search parameters of a subscription.
func (h *Hub) Query(id string) (models.SearchQuery, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return models.SearchQuery{}, false
	}
	return sub.query, true
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

// Publish queues dev for every subscription whose query matches it. It never blocks:
// a subscriber whose queue is full is dropped.
func (h *Hub) Publish(dev *models.Developer) {
	payload, err := json.Marshal(Event{Event: EventNewDev, Data: dev})
	if err != nil {
		h.logger.Error("failed to encode live event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, sub := range h.subs {
		if !sub.query.Matches(dev) {
			continue
		}
		select {
		case sub.send <- payload:
			delivered++
		default:
			h.logger.Warn("dropping slow live subscriber", slog.String("id", id))
			h.removeLocked(id)
		}
	}

	h.logger.Debug("published new developer",
		slog.String("github_username", dev.GithubUsername),
		slog.Int("delivered", delivered),
	)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber; later Subscribe calls get a closed queue.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id := range h.subs {
		h.removeLocked(id)
	}
}

func (h *Hub) removeLocked(id string) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.send)
}

package live

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devradar/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// SearchMessage lets a connected client replace its search parameters without reconnecting.
type SearchMessage struct {
	Type      string          `json:"type"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Techs     models.TechList `json:"techs"`
	Radius    *float64        `json:"radius"`
}

// Query validates the message the same way GET /search validates its query string.
func (m *SearchMessage) Query(defaultRadius float64) (models.SearchQuery, map[string]string) {
	values := url.Values{}
	if m.Latitude != nil {
		values.Set("latitude", strconv.FormatFloat(*m.Latitude, 'f', -1, 64))
	}
	if m.Longitude != nil {
		values.Set("longitude", strconv.FormatFloat(*m.Longitude, 'f', -1, 64))
	}
	if m.Radius != nil {
		values.Set("radius", strconv.FormatFloat(*m.Radius, 'f', -1, 64))
	}
	values["techs"] = []string(m.Techs)
	return models.ParseSearchQuery(values, defaultRadius)
}

// Serve runs one websocket connection until either side closes it. It blocks in the
// read loop; writes happen on a separate goroutine fed by the subscription queue.
func (h *Hub) Serve(conn *websocket.Conn, q models.SearchQuery, defaultRadius float64) {
	sub := h.Subscribe(q)
	done := make(chan struct{})

	go h.writePump(conn, sub, done)
	h.readPump(conn, sub, defaultRadius)

	last, _ := h.Query(sub.ID)
	h.Unsubscribe(sub.ID)
	<-done
	h.logger.Debug("live subscriber disconnected",
		slog.String("id", sub.ID),
		slog.Any("techs", last.Techs),
	)
}

func (h *Hub) readPump(conn *websocket.Conn, sub *Subscription, defaultRadius float64) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("live read failed", slog.String("id", sub.ID), slog.String("error", err.Error()))
			}
			return
		}

		var msg SearchMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "search" {
			h.logger.Debug("ignoring live message", slog.String("id", sub.ID))
			continue
		}
		q, errs := msg.Query(defaultRadius)
		if len(errs) > 0 {
			h.logger.Debug("ignoring invalid live search", slog.String("id", sub.ID), slog.Any("errors", errs))
			continue
		}
		h.Update(sub.ID, q)
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscription, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case payload, ok := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/devradar/backend/internal/live"
	"github.com/devradar/backend/internal/models"
)

type SocketHandler struct {
	hub           *live.Hub
	defaultRadius float64
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

// NewSocketHandler accepts any origin when allowedOrigins contains "*". Requests without
// an Origin header (native mobile clients) are always accepted.
func NewSocketHandler(hub *live.Hub, defaultRadius float64, allowedOrigins []string, logger *slog.Logger) *SocketHandler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &SocketHandler{
		hub:           hub,
		defaultRadius: defaultRadius,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// Connect upgrades GET /ws?latitude=&longitude=&techs= and keeps the connection subscribed
// to new developers matching those parameters until it closes.
func (h *SocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	q, errors := models.ParseSearchQuery(r.URL.Query(), h.defaultRadius)
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Serve(conn, q, h.defaultRadius)
}

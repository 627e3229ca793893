package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devradar/backend/internal/models"
	"github.com/devradar/backend/internal/services"
)

type SearchHandler struct {
	devs          services.DevService
	defaultRadius float64
	logger        *slog.Logger
}

func NewSearchHandler(devs services.DevService, defaultRadius float64, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		devs:          devs,
		defaultRadius: defaultRadius,
		logger:        logger,
	}
}

// Search answers GET /search?latitude=&longitude=&techs= with { "users": [...] }, nearest first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, errors := models.ParseSearchQuery(r.URL.Query(), h.defaultRadius)
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	devs, err := h.devs.Search(ctx, q)
	if err != nil {
		h.logger.Error("search failed",
			slog.Float64("latitude", q.Center.Latitude()),
			slog.Float64("longitude", q.Center.Longitude()),
			slog.Any("techs", q.Techs),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to search developers"))
		return
	}

	writeJSON(w, http.StatusOK, models.SearchResponse{Users: devs})
}

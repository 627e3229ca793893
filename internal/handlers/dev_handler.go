package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/devradar/backend/internal/middleware"
	"github.com/devradar/backend/internal/models"
	"github.com/devradar/backend/internal/services"
)

type DevHandler struct {
	devs          services.DevService
	registration  *services.RegistrationService
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *slog.Logger
}

func NewDevHandler(
	devs services.DevService,
	registration *services.RegistrationService,
	jwtSecret string,
	jwtExpiration time.Duration,
	logger *slog.Logger,
) *DevHandler {
	return &DevHandler{
		devs:          devs,
		registration:  registration,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		logger:        logger,
	}
}

func (h *DevHandler) CreateDev(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDevRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	dev, created, err := h.registration.Register(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGitHubUserNotFound):
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("GitHub user not found"))
		case errors.Is(err, services.ErrGitHubUnavailable):
			h.logger.Warn("github lookup failed", slog.String("github_username", req.GithubUsername), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Could not reach GitHub"))
		default:
			h.logger.Error("registration failed", slog.String("github_username", req.GithubUsername), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to register developer"))
		}
		return
	}

	if !created {
		// Already registered: no token, the profile stays with whoever holds the original one.
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.RegisterResponse{Developer: dev}))
		return
	}

	token, err := h.generateToken(dev.GithubUsername)
	if err != nil {
		h.logger.Error("failed to sign owner token", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.RegisterResponse{
		Developer: dev,
		Token:     token,
	}))
}

func (h *DevHandler) ListDevs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	devs, err := h.devs.List(ctx, limit)
	if err != nil {
		h.logger.Error("list developers failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list developers"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(devs))
}

func (h *DevHandler) GetDev(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "githubUsername")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	dev, err := h.devs.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrDevNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Developer not found"))
			return
		}
		h.logger.Error("get developer failed", slog.String("github_username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to get developer"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(dev))
}

func (h *DevHandler) UpdateDev(w http.ResponseWriter, r *http.Request) {
	username := models.NormalizeUsername(chi.URLParam(r, "githubUsername"))
	if err := h.authorize(r, username); err != nil {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Not authorized to update this developer"))
		return
	}

	var req models.UpdateDevRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	dev, err := h.devs.Update(ctx, username, &req)
	if err != nil {
		if errors.Is(err, services.ErrDevNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Developer not found"))
			return
		}
		h.logger.Error("update developer failed", slog.String("github_username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update developer"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(dev))
}

func (h *DevHandler) DeleteDev(w http.ResponseWriter, r *http.Request) {
	username := models.NormalizeUsername(chi.URLParam(r, "githubUsername"))
	if err := h.authorize(r, username); err != nil {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Not authorized to delete this developer"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.devs.Delete(ctx, username); err != nil {
		if errors.Is(err, services.ErrDevNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Developer not found"))
			return
		}
		h.logger.Error("delete developer failed", slog.String("github_username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete developer"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Developer deleted successfully"}))
}

// authorize checks that the token holder owns the profile being changed.
func (h *DevHandler) authorize(r *http.Request, username string) error {
	owner := middleware.GetGithubUsername(r.Context())
	if owner == "" || owner != username {
		return services.ErrUnauthorized
	}
	return nil
}

func (h *DevHandler) generateToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtExpiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

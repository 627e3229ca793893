package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devradar/backend/internal/handlers"
	"github.com/devradar/backend/internal/live"
	"github.com/devradar/backend/internal/models"
	"github.com/devradar/backend/internal/services"
)

const testSecret = "test-secret"

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	router http.Handler
	devs   services.DevService
	hub    *live.Hub
}

// newTestEnv wires the full router against an in-memory store and a fake GitHub API that
// knows octocat and hubot, returns 404 for ghost and 500 for anything else.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/users/") {
		case "octocat":
			w.Write([]byte(`{"login":"octocat","name":"The Octocat","bio":"mascot","avatar_url":"https://avatars.example/1"}`))
		case "hubot":
			w.Write([]byte(`{"login":"hubot","avatar_url":"https://avatars.example/2"}`))
		case "ghost":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(github.Close)

	devs, err := services.NewMemoryDevService(nil, testLogger)
	require.NoError(t, err)

	hub := live.NewHub(testLogger)
	t.Cleanup(hub.Close)

	registration := services.NewRegistrationService(devs, services.NewGitHubClient(github.URL, ""), hub, nil, testLogger)
	origins := []string{"*"}

	return &testEnv{
		router: handlers.NewRouter(handlers.RouterConfig{
			Devs:           handlers.NewDevHandler(devs, registration, testSecret, time.Hour, testLogger),
			Search:         handlers.NewSearchHandler(devs, models.DefaultSearchRadiusMeters, testLogger),
			Socket:         handlers.NewSocketHandler(hub, models.DefaultSearchRadiusMeters, origins, testLogger),
			JWTSecret:      testSecret,
			AllowedOrigins: origins,
			Logger:         testLogger,
		}),
		devs: devs,
		hub:  hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type registerEnvelope struct {
	Success bool                    `json:"success"`
	Data    models.RegisterResponse `json:"data"`
	Error   string                  `json:"error"`
}

func (e *testEnv) register(t *testing.T, username string, lat, lng float64, techs string) registerEnvelope {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/devs", map[string]interface{}{
		"github_username": username,
		"techs":           techs,
		"latitude":        lat,
		"longitude":       lng,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out registerEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func signToken(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

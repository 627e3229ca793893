package live_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devradar/backend/internal/live"
	"github.com/devradar/backend/internal/models"
)

func TestSearchMessage_Query(t *testing.T) {
	lat, lng, radius := -23.55, -46.63, 2500.0

	q, errs := (&live.SearchMessage{
		Type: "search", Latitude: &lat, Longitude: &lng, Radius: &radius,
		Techs: models.TechList{"Go", " rust"},
	}).Query(models.DefaultSearchRadiusMeters)
	require.Empty(t, errs)
	assert.Equal(t, -23.55, q.Center.Latitude())
	assert.Equal(t, -46.63, q.Center.Longitude())
	assert.Equal(t, []string{"go", "rust"}, q.Techs)
	assert.Equal(t, 2500.0, q.RadiusMeters)

	_, errs = (&live.SearchMessage{Type: "search", Longitude: &lng}).Query(models.DefaultSearchRadiusMeters)
	assert.Contains(t, errs, "latitude")
}

// startServer upgrades every request and hands it to the hub with the given query.
func startServer(t *testing.T, hub *live.Hub, q models.SearchQuery) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, q, models.DefaultSearchRadiusMeters)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *live.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Serve(t *testing.T) {
	hub := live.NewHub(testLogger)
	url := startServer(t, hub, query(-23.55, -46.63, "rust"))

	conn := dial(t, url)
	waitForSubscribers(t, hub, 1)

	hub.Publish(developer("gopher", -23.55, -46.63, "go"))
	hub.Publish(developer("ferris", -23.55, -46.63, "rust"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.JSONEq(t, `"new-dev"`, string(evt["event"]))

	var dev models.Developer
	require.NoError(t, json.Unmarshal(evt["data"], &dev))
	assert.Equal(t, "ferris", dev.GithubUsername)

	// Nothing else was queued for this subscriber.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_ServeSearchUpdate(t *testing.T) {
	hub := live.NewHub(testLogger)
	url := startServer(t, hub, query(0, 0, "go"))

	conn := dial(t, url)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":      "search",
		"latitude":  10.0,
		"longitude": 20.0,
		"techs":     "elixir",
	}))

	// The update is applied asynchronously by the read pump; keep publishing until it lands.
	frames := make(chan []byte, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, raw, err := conn.ReadMessage(); err == nil {
			frames <- raw
		}
		close(frames)
	}()

	var raw []byte
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case raw = <-frames:
			break wait
		case <-ticker.C:
			hub.Publish(developer("jose", 10, 20, "elixir"))
		}
	}
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), `"github_username":"jose"`)
}

func TestHub_ServeDisconnect(t *testing.T) {
	hub := live.NewHub(testLogger)
	url := startServer(t, hub, query(0, 0))

	conn := dial(t, url)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	waitForSubscribers(t, hub, 0)
}

func TestHub_CloseEndsConnections(t *testing.T) {
	hub := live.NewHub(testLogger)
	url := startServer(t, hub, query(0, 0))

	conn := dial(t, url)
	waitForSubscribers(t, hub, 1)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHub_ServeLogsLastSearchOnDisconnect(t *testing.T) {
	var out syncBuffer
	hub := live.NewHub(slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	url := startServer(t, hub, query(0, 0, "zig"))

	conn := dial(t, url)
	waitForSubscribers(t, hub, 1)
	conn.Close()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"msg":"live subscriber disconnected"`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `"techs":["zig"]`)
}

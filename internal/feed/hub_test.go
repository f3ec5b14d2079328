package feed

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func dialFeed(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	r := gin.New()
	r.GET("/ws", WSHandler(hub, zerolog.Nop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestHubWelcomeAndPublish(t *testing.T) {
	hub := NewHub()
	ws := dialFeed(t, hub)

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"welcome"`)
	assert.Equal(t, 1, hub.Count())

	hub.Publish(Event{
		Type:     ReviewCreated,
		TitleID:  7,
		ReviewID: 3,
		Author:   "alice",
		At:       time.Now().UTC(),
	})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	assert.Equal(t, ReviewCreated, evt.Type)
	assert.Equal(t, int64(7), evt.TitleID)
	assert.Equal(t, int64(3), evt.ReviewID)
	assert.Equal(t, "alice", evt.Author)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	ws := dialFeed(t, hub)

	_, _, err := ws.ReadMessage() // welcome
	require.NoError(t, err)
	require.Equal(t, 1, hub.Count())

	require.NoError(t, ws.Close())

	// writes to the closed connection eventually evict it
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() > 0 && time.Now().Before(deadline) {
		hub.Publish(Event{Type: ReviewDeleted, At: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.Count())
}

func TestNilHubPublishIsSafe(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Publish(Event{Type: CommentCreated})
	})
}

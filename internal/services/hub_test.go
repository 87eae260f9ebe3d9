package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialHub stands up a server that registers upgraded connections for the
// given identity and returns the client side of the socket.
func dialHub(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(userID, conn)
		close(registered)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	<-registered
	return conn
}

func TestHubNotifyUser(t *testing.T) {
	hub := NewHub(newMemStore(), nil)
	conn := dialHub(t, hub, 1)

	require.True(t, hub.IsOnline(1))
	require.NoError(t, hub.NotifyUser(1, EventMatchConfirmed, map[string]interface{}{"session_id": "s1"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventMatchConfirmed, event.Kind)
}

func TestHubNotifyUser_Offline(t *testing.T) {
	hub := NewHub(newMemStore(), nil)

	assert.False(t, hub.IsOnline(1))
	assert.Error(t, hub.NotifyUser(1, EventSessionClosed, nil))
}

func TestHubNotifyUser_ConcurrentWrites(t *testing.T) {
	hub := NewHub(newMemStore(), nil)
	conn := dialHub(t, hub, 1)

	// Writes to one connection must be serialized; concurrent deliveries
	// to the same user all arrive intact.
	const events = 32
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, hub.NotifyUser(1, EventMessageRelayed, map[string]interface{}{"n": 1}))
		}()
	}

	for i := 0; i < events; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventMessageRelayed, event.Kind)
	}
	wg.Wait()
}

func TestHubRegister_ReplacesConnection(t *testing.T) {
	hub := NewHub(newMemStore(), nil)
	old := dialHub(t, hub, 1)
	fresh := dialHub(t, hub, 1)

	require.NoError(t, hub.NotifyUser(1, EventGrantConfirmed, nil))

	_, _, err := fresh.ReadMessage()
	assert.NoError(t, err, "events land on the newest connection")

	// The replaced socket was closed server-side.
	old.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = old.ReadMessage()
	assert.Error(t, err)
}

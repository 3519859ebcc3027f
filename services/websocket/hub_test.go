package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastToUserOnlyReachesThatUser(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go h.Run(stop)

	mine := &Client{hub: h, send: make(chan []byte, 1), userID: 7}
	other := &Client{hub: h, send: make(chan []byte, 1), userID: 8}
	h.register <- mine
	h.register <- other

	require.Eventually(t, func() bool { return h.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)

	h.BroadcastToUser(7, Message{Type: "notification", Data: "hi"})

	select {
	case raw := <-mine.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "notification", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	assert.Len(t, other.send, 0)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go h.Run(stop)

	c := &Client{hub: h, send: make(chan []byte), userID: 1}
	h.register <- c
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastToUser(1, Message{Type: "ping"})
	assert.Equal(t, 0, h.GetClientCount())
}

func TestServeWSDeliversOverTheWire(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go h.Run(stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, 42)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastToUser(42, Message{Type: "notification", Data: "fee paid"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "notification", msg.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return h.GetClientCount() == 0 }, 2*time.Second, 20*time.Millisecond)
}

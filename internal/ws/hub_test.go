package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

// wsPair upgrades one connection through a throwaway server and returns
// both ends.
func wsPair(t *testing.T) (serverConn, clientConn *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	t.Cleanup(func() { serverConn.Close() })
	return serverConn, clientConn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHubRoster(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	aliceSrv, _ := wsPair(t)
	bobSrv, _ := wsPair(t)

	hub.Register("u-bob", bobSrv, ConnInfo{UserID: "u-bob"})
	hub.Register("u-alice", aliceSrv, ConnInfo{UserID: "u-alice"})
	assert.Equal(t, []string{"u-alice", "u-bob"}, hub.OnlineIDs())

	hub.Unregister("u-alice", aliceSrv)
	assert.Equal(t, []string{"u-bob"}, hub.OnlineIDs())

	hub.Unregister("u-bob", bobSrv)
	assert.Empty(t, hub.OnlineIDs())
}

func TestHubUserStaysOnlineWithSecondConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	first, _ := wsPair(t)
	second, _ := wsPair(t)

	hub.Register("u-alice", first, ConnInfo{UserID: "u-alice"})
	hub.Register("u-alice", second, ConnInfo{UserID: "u-alice"})

	hub.Unregister("u-alice", first)
	assert.Equal(t, []string{"u-alice"}, hub.OnlineIDs())

	hub.Unregister("u-alice", second)
	assert.Empty(t, hub.OnlineIDs())
}

func TestHubBroadcastPresence(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	aliceSrv, aliceClient := wsPair(t)
	bobSrv, bobClient := wsPair(t)

	hub.Register("u-alice", aliceSrv, ConnInfo{UserID: "u-alice"})
	hub.Register("u-bob", bobSrv, ConnInfo{UserID: "u-bob"})

	hub.BroadcastPresence(context.Background())

	for _, client := range []*websocket.Conn{aliceClient, bobClient} {
		frame := readFrame(t, client)
		assert.Equal(t, models.FrameTypePresence, frame.Type)
		assert.Equal(t, []string{"u-alice", "u-bob"}, frame.OnlineIDs)
	}
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	aliceSrv, aliceClient := wsPair(t)
	bobSrv, bobClient := wsPair(t)

	hub.Register("u-alice", aliceSrv, ConnInfo{UserID: "u-alice"})
	hub.Register("u-bob", bobSrv, ConnInfo{UserID: "u-bob"})

	msg := models.Message{ID: "m1", SenderID: "u-alice", ReceiverID: "u-bob", Body: "hi"}
	hub.SendToUser(context.Background(), "u-bob", msg)

	frame := readFrame(t, bobClient)
	assert.Equal(t, models.FrameTypeChat, frame.Type)
	require.NotNil(t, frame.Message)
	assert.Equal(t, "hi", frame.Message.Body)

	// Alice gets nothing.
	aliceClient.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var stray models.Frame
	assert.Error(t, aliceClient.ReadJSON(&stray))
}

func TestHubWriteErrorEvictsConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srvConn, clientConn := wsPair(t)

	hub.Register("u-alice", srvConn, ConnInfo{UserID: "u-alice"})

	clientConn.Close()
	srvConn.Close()

	hub.BroadcastPresence(context.Background())
	assert.Empty(t, hub.OnlineIDs())
}

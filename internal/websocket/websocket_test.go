package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/hirewire/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	metrics.Initialize()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

// fakeClient is a room member without a network connection.
func fakeClient(hub *Hub, userID string, buffer int) *Client {
	return &Client{hub: hub, UserID: userID, send: make(chan []byte, buffer)}
}

func join(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	before := hub.ConnectionCount(c.UserID)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ConnectionCount(c.UserID) == before+1 },
		time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		var e Event
		require.NoError(t, json.Unmarshal(data, &e))
		return &e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubShutdownReleasesGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub()
	go hub.Run()
	c := fakeClient(hub, "u1", 4)
	join(t, hub, c)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	e := receive(t, c)
	assert.Equal(t, EventSystem, e.Type)
	var p SystemPayload
	require.NoError(t, e.ParsePayload(&p))
	assert.Equal(t, SystemServerShutdown, p.Event)
	assert.False(t, hub.IsUserOnline("u1"))

	// Emitting after shutdown is a no-op.
	hub.EmitToUser("u1", EventNotification, nil)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "event %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow())

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestEventEncoding(t *testing.T) {
	e := NewEvent(EventTyping, TypingPayload{UserID: "a", RecipientID: "b", IsTyping: true})
	data, err := e.Marshal()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, EventTyping, decoded.Type)
	assert.WithinDuration(t, e.Timestamp.Time, decoded.Timestamp.Time, time.Millisecond)

	var typing TypingPayload
	require.NoError(t, decoded.ParsePayload(&typing))
	assert.Equal(t, TypingPayload{UserID: "a", RecipientID: "b", IsTyping: true}, typing)
}

func TestEventAcceptsMillisecondTimestamp(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","id":"p1","timestamp":1700000000000}`), &e))
	assert.Equal(t, "p1", e.ID)
	assert.Equal(t, int64(1700000000000), e.Timestamp.UnixMilli())

	reply := NewReply(&e, EventPong, nil)
	assert.Equal(t, "p1", reply.ReplyTo)

	var p PingPayload
	assert.Error(t, e.ParsePayload(&p), "event without payload")
}

func TestEmitReachesEverySocketInRoom(t *testing.T) {
	hub := startHub(t)
	phone := fakeClient(hub, "alice", 8)
	laptop := fakeClient(hub, "alice", 8)
	other := fakeClient(hub, "bob", 8)
	join(t, hub, phone)
	join(t, hub, laptop)
	join(t, hub, other)

	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.OnlineUsers())

	hub.EmitToUser("alice", EventNewMessage, map[string]string{"content": "hi"})

	for _, c := range []*Client{phone, laptop} {
		e := receive(t, c)
		assert.Equal(t, EventNewMessage, e.Type)
		var payload map[string]string
		require.NoError(t, e.ParsePayload(&payload))
		assert.Equal(t, "hi", payload["content"])
	}
	assertNothing(t, other)
	assert.Equal(t, int64(2), hub.Snapshot().EventsDelivered)
}

func TestEmitToOfflineUserIsDropped(t *testing.T) {
	hub := startHub(t)
	hub.EmitToUser("nobody", EventNotification, map[string]string{"id": "n1"})
	require.Eventually(t, func() bool { return hub.Snapshot().EventsDropped == 1 },
		time.Second, 5*time.Millisecond)
	hub.EmitToUser("", EventNotification, nil)
	assert.Equal(t, int64(1), hub.Snapshot().EventsDropped)
}

func TestSlowClientIsRemoved(t *testing.T) {
	hub := startHub(t)
	slow := fakeClient(hub, "carol", 1)
	join(t, hub, slow)

	hub.EmitToUser("carol", EventNotification, 1)
	hub.EmitToUser("carol", EventNotification, 2)

	require.Eventually(t, func() bool { return !hub.IsUserOnline("carol") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), hub.Snapshot().ConnectionsDropped)

	receive(t, slow)
	_, ok := <-slow.send
	assert.False(t, ok, "send queue closed after removal")
}

func TestDisconnectUser(t *testing.T) {
	hub := startHub(t)
	a := fakeClient(hub, "dave", 4)
	b := fakeClient(hub, "dave", 4)
	join(t, hub, a)
	join(t, hub, b)

	hub.DisconnectUser("dave")

	for _, c := range []*Client{a, b} {
		e := receive(t, c)
		var p SystemPayload
		require.NoError(t, e.ParsePayload(&p))
		assert.Equal(t, SystemLoggedOut, p.Event)
		_, ok := <-c.send
		assert.False(t, ok)
	}
	assert.False(t, hub.IsUserOnline("dave"))
	assert.Equal(t, int64(0), hub.Snapshot().ActiveConnections)

	// Events emitted after leaving are not delivered.
	hub.EmitToUser("dave", EventNewMessage, nil)
	require.Eventually(t, func() bool { return hub.Snapshot().EventsDropped == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub, "erin", 1)
	join(t, hub, c)

	hub.Unregister(c)
	hub.Unregister(c)
	require.Eventually(t, func() bool { return !hub.IsUserOnline("erin") }, time.Second, 5*time.Millisecond)
	assert.False(t, c.trySend([]byte("x")))
}

func TestRelayDispatchDeliversLocally(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub, "frank", 4)
	join(t, hub, c)
	relay := NewRedisRelay(hub, nil, "")
	assert.Equal(t, DefaultRelayChannel, relay.channel)

	data, err := NewEvent(EventMessagesRead, map[string]int{"count": 3}).Marshal()
	require.NoError(t, err)
	body, err := json.Marshal(relayEnvelope{Kind: relayKindEvent, UserID: "frank", EventType: EventMessagesRead, Data: data})
	require.NoError(t, err)

	relay.dispatch(body)
	e := receive(t, c)
	assert.Equal(t, EventMessagesRead, e.Type)

	relay.dispatch([]byte("not json"))
	assertNothing(t, c)

	body, _ = json.Marshal(relayEnvelope{Kind: relayKindDisconnect, UserID: "frank"})
	relay.dispatch(body)
	require.Eventually(t, func() bool { return !hub.IsUserOnline("frank") }, time.Second, 5*time.Millisecond)
}

func TestRelayFallsBackWhenRedisDown(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub, "gina", 4)
	join(t, hub, c)

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	relay := NewRedisRelay(hub, rdb, "test:realtime")

	relay.EmitToUser("gina", EventNotification, map[string]string{"type": "like"})
	e := receive(t, c)
	assert.Equal(t, EventNotification, e.Type)
}

type tokenAuth map[string]*models.User

func (a tokenAuth) AuthenticateToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := a[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := startHub(t)
	auth := tokenAuth{
		"alice-token": {ID: "alice", Username: "alice"},
		"bob-token":   {ID: "bob", Username: "bob"},
	}
	handler := NewHandler(hub, auth, nil)

	router := gin.New()
	router.GET("/ws", handler.HandleWebSocket)
	router.POST("/ws/online", handler.HandleOnlineStatus)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv.URL
}

func dial(t *testing.T, base, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(base, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) *Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var e Event
	require.NoError(t, wsjson.Read(ctx, conn, &e))
	return &e
}

func TestSocketRejectsMissingToken(t *testing.T) {
	_, base := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(base, "http")+"/ws?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocketEndToEnd(t *testing.T) {
	hub, base := startServer(t)

	alice := dial(t, base, "alice-token")
	welcome := read(t, alice)
	assert.Equal(t, EventSystem, welcome.Type)
	var sys SystemPayload
	require.NoError(t, welcome.ParsePayload(&sys))
	assert.Equal(t, SystemConnected, sys.Event)
	assert.Equal(t, "alice", sys.Data["user_id"])

	bob := dial(t, base, "bob-token")
	read(t, bob)
	require.Eventually(t, func() bool { return hub.IsUserOnline("alice") && hub.IsUserOnline("bob") },
		time.Second, 5*time.Millisecond)

	// server push
	hub.EmitToUser("alice", EventNewMessage, map[string]string{"content": "hello"})
	assert.Equal(t, EventNewMessage, read(t, alice).Type)

	// ping / pong
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, alice, map[string]interface{}{
		"type": "ping", "id": "p1", "payload": map[string]int64{"client_time": time.Now().UnixMilli()},
	}))
	pong := read(t, alice)
	assert.Equal(t, EventPong, pong.Type)
	assert.Equal(t, "p1", pong.ReplyTo)

	// typing is relayed to the partner with the sender filled in
	require.NoError(t, wsjson.Write(ctx, alice, map[string]interface{}{
		"type": "typing", "payload": map[string]interface{}{"recipient_id": "bob", "is_typing": true},
	}))
	typingEvent := read(t, bob)
	assert.Equal(t, EventTyping, typingEvent.Type)
	var typing TypingPayload
	require.NoError(t, typingEvent.ParsePayload(&typing))
	assert.Equal(t, "alice", typing.UserID)
	assert.True(t, typing.IsTyping)

	// unknown events get an error back
	require.NoError(t, wsjson.Write(ctx, alice, map[string]string{"type": "dance"}))
	errEvent := read(t, alice)
	assert.Equal(t, EventError, errEvent.Type)

	// leave takes the socket out of the room
	require.NoError(t, wsjson.Write(ctx, bob, map[string]string{"type": "leave"}))
	require.Eventually(t, func() bool { return !hub.IsUserOnline("bob") }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsUserOnline("alice"))
}

package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"restaurant-pos-api/internal/protocol"
	"restaurant-pos-api/internal/realtime"
	"restaurant-pos-api/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// newHubServer runs the real hub behind a websocket endpoint.
func newHubServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	log := testutil.DiscardLogger()
	hub := realtime.NewHub(log, realtime.NewRegistry(time.Minute, nil))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		realtime.NewWSConn(ws, r.URL.Query().Get("token"), hub, log).Serve()
	}))
	t.Cleanup(srv.Close)
	return srv, hub
}

// scriptedServer answers frames with a test-provided function.
func scriptedServer(t *testing.T, reply func(conn int, ws *websocket.Conn, msg protocol.Message) bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		n := int(conns.Add(1))
		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.Parse(frame)
			if err != nil {
				return
			}
			if !reply(n, ws, msg) {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func send(ws *websocket.Conn, p protocol.Payload, ackID uint64) {
	frame, _ := protocol.Frame(p, ackID)
	_ = ws.WriteMessage(websocket.TextMessage, frame)
}

func joinReply(ws *websocket.Conn, msg protocol.Message) {
	var req protocol.JoinRequest
	_ = json.Unmarshal(msg.Data, &req)
	send(ws, protocol.RestaurantJoined{RestaurantID: req.RestaurantID, ClientID: "c-1", Status: protocol.StatusConnected}, 0)
}

func newTestManager(url string) *Manager {
	return New(Config{
		URL:                  url,
		ConnectTimeout:       time.Second,
		HeartbeatInterval:    time.Hour,
		MaxReconnectAttempts: 3,
		BackoffUnit:          5 * time.Millisecond,
		AckTimeout:           time.Second,
		Logger:               testutil.DiscardLogger(),
	})
}

type inbox struct {
	mu     sync.Mutex
	events []protocol.Payload
}

func (i *inbox) add(p protocol.Payload) {
	i.mu.Lock()
	i.events = append(i.events, p)
	i.mu.Unlock()
}

func (i *inbox) len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.events)
}

func (i *inbox) get(n int) protocol.Payload {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.events[n]
}

func TestConnect_JoinsAndReceivesRoomEvents(t *testing.T) {
	req := require.New(t)
	srv, hub := newHubServer(t)

	first := newTestManager(wsURL(srv))
	defer first.Disconnect()
	var joinedOthers inbox
	first.Subscribe(protocol.EventClientJoined, joinedOthers.add)

	req.NoError(first.Connect(context.Background(), "rest-1", "tok-A"))
	req.Equal(StateConnected, first.State())
	req.NotEmpty(first.ClientID())
	req.Equal("rest-1", first.RestaurantID())

	second := newTestManager(wsURL(srv))
	defer second.Disconnect()
	req.NoError(second.Connect(context.Background(), "rest-1", "tok-B"))

	req.Eventually(func() bool { return joinedOthers.len() == 1 }, time.Second, 5*time.Millisecond)
	cj := joinedOthers.get(0).(protocol.ClientJoined)
	req.Equal(2, cj.TotalClients)
	req.Equal(second.ClientID(), cj.ClientID)
	req.Equal(2, hub.RoomLen("rest-1"))
}

func TestEmitWithAck_RelaysToRoomOnly(t *testing.T) {
	req := require.New(t)
	srv, _ := newHubServer(t)
	ctx := context.Background()

	a, b, other := newTestManager(wsURL(srv)), newTestManager(wsURL(srv)), newTestManager(wsURL(srv))
	defer a.Disconnect()
	defer b.Disconnect()
	defer other.Disconnect()

	var gotB, gotOther inbox
	b.Subscribe(protocol.EventNewOrder, gotB.add)
	b.Subscribe(protocol.EventNewNotification, gotB.add)
	other.Subscribe(protocol.EventNewOrder, gotOther.add)

	req.NoError(a.Connect(ctx, "rest-1", "tok-A"))
	req.NoError(b.Connect(ctx, "rest-1", "tok-B"))
	req.NoError(other.Connect(ctx, "rest-2", "tok-C"))

	order := json.RawMessage(`{"_id":"o-1","orderNumber":"A-1","items":[{"name":"Soup"}]}`)
	req.NoError(a.PublishNewOrder(ctx, order))

	req.Eventually(func() bool { return gotB.len() == 2 }, time.Second, 5*time.Millisecond)
	req.JSONEq(string(order), string(gotB.get(0).(protocol.NewOrder).Order))
	req.Equal("order", gotB.get(1).(protocol.NotificationPayload).Type)

	req.NoError(a.UpdateOrderStatus(ctx, "o-1", "ready"))
	req.NoError(a.UpdateKitchen(ctx, "o-1", "preparing"))
	req.NoError(a.UpdateInventory(ctx, "i-1", 4))

	time.Sleep(20 * time.Millisecond)
	req.Zero(gotOther.len())
}

func TestEmitWithAck_NotConnected(t *testing.T) {
	ctx := context.Background()
	m := newTestManager("ws://127.0.0.1:1/ws")

	require.ErrorIs(t, m.UpdateOrderStatus(ctx, "o-1", "ready"), ErrNotConnected)
	require.ErrorIs(t, m.UpdateKitchen(ctx, "o-1", "preparing"), ErrNotConnected)
	require.ErrorIs(t, m.UpdateInventory(ctx, "i-1", 4), ErrNotConnected)
	require.ErrorIs(t, m.PublishNewOrder(ctx, json.RawMessage(`{"_id":"o-1"}`)), ErrNotConnected)
}

func TestEmitWithAck_AfterDisconnect(t *testing.T) {
	srv, _ := newHubServer(t)
	m := newTestManager(wsURL(srv))
	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))
	m.Disconnect()

	err := m.UpdateOrderStatus(context.Background(), "o-1", "ready")
	require.ErrorIs(t, err, ErrNotConnected)
	var verr *protocol.ValidationError
	require.False(t, errors.As(err, &verr))
}

func TestEmitWithAck_FailedAck(t *testing.T) {
	srv, _ := scriptedServer(t, func(_ int, ws *websocket.Conn, msg protocol.Message) bool {
		switch msg.Event {
		case protocol.EventJoinRestaurant:
			joinReply(ws, msg)
		default:
			send(ws, protocol.Ack{Success: false, Message: "order is locked"}, msg.AckID)
		}
		return true
	})
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()
	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))

	err := m.UpdateKitchen(context.Background(), "o-1", "ready")
	var ackErr *AckError
	require.ErrorAs(t, err, &ackErr)
	require.Equal(t, protocol.EventKitchenUpdate, ackErr.Event)
	require.Equal(t, "order is locked", ackErr.Message)
}

func TestEmitWithAck_InvalidRequestIsNotSent(t *testing.T) {
	srv, _ := newHubServer(t)
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()
	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))

	var verr *protocol.ValidationError
	require.ErrorAs(t, m.UpdateOrderStatus(context.Background(), "", "ready"), &verr)
}

func TestDisconnect_RejectsPendingAcks(t *testing.T) {
	srv, _ := scriptedServer(t, func(_ int, ws *websocket.Conn, msg protocol.Message) bool {
		if msg.Event == protocol.EventJoinRestaurant {
			joinReply(ws, msg)
		}
		return true // never acks anything else
	})
	m := newTestManager(wsURL(srv))
	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))

	done := make(chan error, 1)
	go func() { done <- m.UpdateOrderStatus(context.Background(), "o-1", "ready") }()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.pending) == 1
	}, time.Second, 5*time.Millisecond)

	m.Disconnect()
	m.Disconnect()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrDisconnected)
	case <-time.After(time.Second):
		t.Fatal("pending ack was not rejected")
	}
	require.Equal(t, StateDisconnected, m.State())
	require.Empty(t, m.RestaurantID())
}

func TestConnect_HandshakeRejectionIsNotRetried(t *testing.T) {
	srv, conns := newHubServerCounting(t)
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()

	err := m.Connect(context.Background(), "", "tok")
	var rejected *HandshakeError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "Restaurant ID is required", rejected.Message)
	require.Equal(t, StateError, m.State())

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, conns.Load())
}

func newHubServerCounting(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	log := testutil.DiscardLogger()
	hub := realtime.NewHub(log, realtime.NewRegistry(time.Minute, nil))
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns.Add(1)
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		realtime.NewWSConn(ws, "", hub, log).Serve()
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestConnect_TimeoutSchedulesRetry(t *testing.T) {
	srv, conns := scriptedServer(t, func(int, *websocket.Conn, protocol.Message) bool { return true })
	m := New(Config{
		URL:                  wsURL(srv),
		ConnectTimeout:       50 * time.Millisecond,
		MaxReconnectAttempts: 1,
		BackoffUnit:          time.Millisecond,
		Logger:               testutil.DiscardLogger(),
	})
	defer m.Disconnect()

	err := m.Connect(context.Background(), "rest-1", "tok")
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.Eventually(t, func() bool { return conns.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return errors.Is(m.LastError(), ErrReconnectExhausted) }, time.Second, 5*time.Millisecond)
}

func TestReconnect_AfterServerDrop(t *testing.T) {
	srv, conns := scriptedServer(t, func(n int, ws *websocket.Conn, msg protocol.Message) bool {
		if msg.Event == protocol.EventJoinRestaurant {
			joinReply(ws, msg)
			return true
		}
		if n == 1 {
			return false // drop the first connection on its first request
		}
		send(ws, protocol.AckOK(), msg.AckID)
		return true
	})
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()

	var mu sync.Mutex
	var states []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))
	require.ErrorIs(t, m.UpdateOrderStatus(context.Background(), "o-1", "ready"), ErrDisconnected)

	require.Eventually(t, func() bool { return conns.Load() == 2 && m.Connected() }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.UpdateOrderStatus(context.Background(), "o-1", "ready"))
	require.NoError(t, m.LastError())

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, states, StateDisconnected)
	require.Equal(t, StateConnected, states[len(states)-1])
}

func TestReconnect_GivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	m := New(Config{
		URL:                  url,
		ConnectTimeout:       200 * time.Millisecond,
		MaxReconnectAttempts: 2,
		BackoffUnit:          time.Millisecond,
		Logger:               testutil.DiscardLogger(),
	})
	defer m.Disconnect()

	require.Error(t, m.Connect(context.Background(), "rest-1", "tok"))
	require.Eventually(t, func() bool {
		return errors.Is(m.LastError(), ErrReconnectExhausted) && m.State() == StateDisconnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	srv, hub := newHubServer(t)
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()

	var got inbox
	unsubscribe := m.Subscribe(protocol.EventKitchenUpdate, got.add)
	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))

	require.NoError(t, hub.Emit("rest-1", protocol.KitchenUpdate{OrderID: "o", Status: "ready", Timestamp: time.Now()}))
	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	require.NoError(t, hub.Emit("rest-1", protocol.KitchenUpdate{OrderID: "o", Status: "served", Timestamp: time.Now()}))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, got.len())
}

func TestHeartbeat_RecordsPong(t *testing.T) {
	srv, _ := newHubServer(t)
	m := New(Config{URL: wsURL(srv), HeartbeatInterval: 10 * time.Millisecond, Logger: testutil.DiscardLogger()})
	defer m.Disconnect()

	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))
	require.Eventually(t, func() bool { return !m.LastPong().IsZero() }, time.Second, 5*time.Millisecond)
}

func TestHeartbeat_LostPongTakesNoAction(t *testing.T) {
	var pings atomic.Int32
	srv, conns := scriptedServer(t, func(_ int, ws *websocket.Conn, msg protocol.Message) bool {
		switch msg.Event {
		case protocol.EventJoinRestaurant:
			joinReply(ws, msg)
		case protocol.EventPing:
			pings.Add(1)
		}
		return true
	})
	m := New(Config{URL: wsURL(srv), HeartbeatInterval: 10 * time.Millisecond, Logger: testutil.DiscardLogger()})
	defer m.Disconnect()

	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))
	require.Eventually(t, func() bool { return pings.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, StateConnected, m.State())
	require.True(t, m.LastPong().IsZero())
	require.Equal(t, int32(1), conns.Load())
	require.NoError(t, m.LastError())
}

func TestConnect_ReplacesExistingConnection(t *testing.T) {
	srv, hub := newHubServer(t)
	m := newTestManager(wsURL(srv))
	defer m.Disconnect()

	require.NoError(t, m.Connect(context.Background(), "rest-1", "tok"))
	require.NoError(t, m.Connect(context.Background(), "rest-2", "tok"))

	require.Eventually(t, func() bool { return hub.RoomLen("rest-1") == 0 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, hub.RoomLen("rest-2"))
	require.Equal(t, "rest-2", m.RestaurantID())
}

func TestBackoffDelay(t *testing.T) {
	for attempt, want := range map[int]time.Duration{
		1: 2 * time.Second,
		2: 4 * time.Second,
		3: 8 * time.Second,
		5: 32 * time.Second,
	} {
		require.Equal(t, want, BackoffDelay(time.Second, attempt))
	}
}

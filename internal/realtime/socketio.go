package realtime

import (
	"encoding/json"
	"log/slog"

	"restaurant-pos-api/internal/protocol"

	socketio "github.com/googollee/go-socket.io"
)

// Authenticator resolves the user behind a handshake token.
type Authenticator func(token string) (userID string, err error)

type sioConn struct {
	id     string
	userID string
	s      socketio.Conn
}

func (c *sioConn) ID() string     { return c.id }
func (c *sioConn) UserID() string { return c.userID }

func (c *sioConn) Send(msg protocol.Message) error {
	c.s.Emit(string(msg.Event), msg.Data)
	return nil
}

func (c *sioConn) Close() error { return c.s.Close() }

func connOf(s socketio.Conn) *sioConn {
	if s == nil {
		return nil
	}
	c, _ := s.Context().(*sioConn)
	return c
}

// NewSocketIOServer exposes the hub over socket.io for clients that cannot hold a
// raw websocket. The caller runs Serve and Close on the returned server.
func NewSocketIOServer(hub *Hub, authenticate Authenticator, log *slog.Logger) *socketio.Server {
	h := &sioHandlers{hub: hub, authenticate: authenticate, log: log}
	server := socketio.NewServer(nil)

	server.OnConnect("/", h.connect)
	server.OnEvent("/", string(protocol.EventJoinRestaurant), h.join)
	server.OnEvent("/", string(protocol.EventPing), h.ping)
	for _, event := range sioRelayEvents {
		server.OnEvent("/", string(event), h.relay(event))
	}
	server.OnError("/", h.onError)
	server.OnDisconnect("/", h.disconnect)

	return server
}

var sioRelayEvents = []protocol.EventName{
	protocol.EventUpdateOrderStatus,
	protocol.EventKitchenUpdate,
	protocol.EventNewOrder,
	protocol.EventInventoryUpdate,
}

type sioHandlers struct {
	hub          *Hub
	authenticate Authenticator
	log          *slog.Logger
}

func (h *sioHandlers) connect(s socketio.Conn) error {
	u := s.URL()
	userID, err := h.authenticate(u.Query().Get("token"))
	if err != nil {
		h.log.Warn("socket.io handshake rejected", "sid", s.ID(), "err", err)
		return err
	}
	conn := &sioConn{id: "sio-" + s.ID(), userID: userID, s: s}
	s.SetContext(conn)
	h.hub.Connect(conn)
	return nil
}

func (h *sioHandlers) join(s socketio.Conn, data map[string]interface{}) {
	h.dispatch(s, protocol.EventJoinRestaurant, data)
}

func (h *sioHandlers) ping(s socketio.Conn) {
	h.dispatch(s, protocol.EventPing, nil)
}

// relay returns the handler for one client event. Its return value is the
// socket.io acknowledgment.
func (h *sioHandlers) relay(event protocol.EventName) func(socketio.Conn, map[string]interface{}) protocol.Ack {
	return func(s socketio.Conn, data map[string]interface{}) protocol.Ack {
		if connOf(s) == nil {
			return protocol.AckFail(ErrNotJoined)
		}
		if ack := h.dispatch(s, event, data); ack != nil {
			return *ack
		}
		return protocol.AckOK()
	}
}

func (h *sioHandlers) onError(s socketio.Conn, err error) {
	if s == nil {
		h.log.Warn("socket.io error", "err", err)
		return
	}
	h.log.Warn("socket.io error", "sid", s.ID(), "err", err)
}

func (h *sioHandlers) disconnect(s socketio.Conn, reason string) {
	if conn := connOf(s); conn != nil {
		h.hub.Leave(conn)
		h.log.Debug("socket.io client disconnected", "clientId", conn.ID(), "reason", reason)
	}
}

func (h *sioHandlers) dispatch(s socketio.Conn, event protocol.EventName, data map[string]interface{}) *protocol.Ack {
	conn := connOf(s)
	if conn == nil {
		return nil
	}
	msg := protocol.Message{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			h.log.Warn("socket.io payload not encodable", "clientId", conn.ID(), "event", event, "err", err)
			return ackPtr(protocol.AckFail(err))
		}
		msg.Data = raw
	}
	return h.hub.Handle(conn, msg)
}

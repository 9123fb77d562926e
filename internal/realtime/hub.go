package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"restaurant-pos-api/internal/protocol"

	"github.com/samber/lo"
)

var (
	ErrMissingRestaurant = errors.New("restaurant id is required")
	ErrNotJoined         = errors.New("connection has not joined this restaurant")
	errHandlerPanic      = errors.New("internal error while handling event")
)

// Conn is one client connection as seen by the hub, whatever the transport.
type Conn interface {
	ID() string
	UserID() string
	// Send queues msg for delivery without blocking.
	Send(msg protocol.Message) error
	Close() error
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Joined      int `json:"joined"`
}

// Hub relays events to restaurant rooms. A connection belongs to at most one room.
//
// Delivery is best-effort and at-most-once: there is no persistence, replay or
// receipt tracking, and broadcasting to an empty room is a no-op.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]Conn
	rooms    map[string]map[string]Conn
	members  map[string]string // connection id -> restaurant id
	registry *Registry
	log      *slog.Logger
	now      func() time.Time
}

func NewHub(log *slog.Logger, registry *Registry) *Hub {
	return &Hub{
		conns:    make(map[string]Conn),
		rooms:    make(map[string]map[string]Conn),
		members:  make(map[string]string),
		registry: registry,
		log:      log,
		now:      time.Now,
	}
}

var _ Emitter = (*Hub)(nil)

// Connect registers a connection that has completed the transport handshake.
func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()

	h.registry.Track(c.ID(), c.UserID())
	h.log.Debug("client connected", "clientId", c.ID(), "userId", c.UserID())
}

// Join admits c into the room of req.RestaurantID, leaving any previous room.
// The auth token is not verified here: the transport was authenticated at upgrade.
func (h *Hub) Join(c Conn, req protocol.JoinRequest) error {
	restaurantID := strings.TrimSpace(req.RestaurantID)
	if restaurantID == "" {
		h.send(c, protocol.ErrorPayload{Message: "Restaurant ID is required"})
		h.log.Warn("join rejected", "clientId", c.ID(), "err", ErrMissingRestaurant)
		return ErrMissingRestaurant
	}

	h.mu.Lock()
	if _, ok := h.conns[c.ID()]; !ok {
		h.conns[c.ID()] = c
		h.registry.Track(c.ID(), c.UserID())
	}
	if prev, ok := h.members[c.ID()]; ok && prev != restaurantID {
		h.removeFromRoomLocked(c.ID(), prev)
		h.log.Info("client moved between rooms", "clientId", c.ID(), "from", prev, "to", restaurantID)
	}
	room, ok := h.rooms[restaurantID]
	if !ok {
		room = make(map[string]Conn)
		h.rooms[restaurantID] = room
	}
	room[c.ID()] = c
	h.members[c.ID()] = restaurantID
	others := lo.Filter(lo.Values(room), func(o Conn, _ int) bool { return o.ID() != c.ID() })
	total := len(room)
	h.registry.Assign(c.ID(), c.UserID(), restaurantID)
	h.mu.Unlock()

	h.send(c, protocol.RestaurantJoined{
		RestaurantID: restaurantID,
		ClientID:     c.ID(),
		Status:       protocol.StatusConnected,
	})
	h.broadcast(others, protocol.ClientJoined{ClientID: c.ID(), TotalClients: total})

	h.log.Info("client joined restaurant", "restaurantId", restaurantID, "clientId", c.ID(), "clients", total)
	return nil
}

// Leave forgets c entirely. It is safe to call more than once.
func (h *Hub) Leave(c Conn) {
	h.mu.Lock()
	restaurantID, joined := h.members[c.ID()]
	if joined {
		h.removeFromRoomLocked(c.ID(), restaurantID)
	}
	_, known := h.conns[c.ID()]
	delete(h.conns, c.ID())
	h.mu.Unlock()

	h.registry.Remove(c.ID())
	if known {
		h.log.Info("client disconnected", "restaurantId", restaurantID, "clientId", c.ID())
	}
}

func (h *Hub) removeFromRoomLocked(id, restaurantID string) {
	delete(h.members, id)
	room, ok := h.rooms[restaurantID]
	if !ok {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(h.rooms, restaurantID)
		h.log.Debug("room removed", "restaurantId", restaurantID)
	}
}

// Heartbeat answers a ping. It only refreshes the registry; missing pings are
// handled by the stale sweep, not here. A connection the hub still holds is
// re-armed even if its registry entry already expired.
func (h *Hub) Heartbeat(c Conn) {
	if !h.registry.Touch(c.ID()) {
		h.mu.RLock()
		_, open := h.conns[c.ID()]
		restaurantID := h.members[c.ID()]
		h.mu.RUnlock()
		if open {
			h.registry.Restore(c.ID(), c.UserID(), restaurantID)
			h.log.Debug("stale connection re-armed by heartbeat", "clientId", c.ID())
		}
	}
	h.send(c, protocol.Pong{})
}

// Relay validates p and sends it verbatim to every connection in the room.
// It returns the number of connections the event was queued for.
func (h *Hub) Relay(restaurantID string, p protocol.Payload) (int, error) {
	msg, err := protocol.Encode(p)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := lo.Values(h.rooms[restaurantID])
	h.mu.RUnlock()

	return h.deliver(targets, msg), nil
}

// Emit implements Emitter.
func (h *Hub) Emit(restaurantID string, p protocol.Payload) error {
	if strings.TrimSpace(restaurantID) == "" {
		return ErrMissingRestaurant
	}
	n, err := h.Relay(restaurantID, p)
	if err != nil {
		return fmt.Errorf("emit %s: %w", p.Event(), err)
	}
	h.log.Debug("event emitted", "restaurantId", restaurantID, "event", p.Event(), "delivered", n)
	return nil
}

// Handle dispatches one inbound client event. The returned ack, if any, is the
// reply to a client that asked for an acknowledgment.
func (h *Hub) Handle(c Conn, msg protocol.Message) (ack *protocol.Ack) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling event", "clientId", c.ID(), "event", msg.Event, "panic", r)
			ack = ackPtr(protocol.AckFail(errHandlerPanic))
		}
	}()

	p, err := protocol.DecodeClient(msg)
	if err != nil {
		h.log.Warn("rejected client event", "clientId", c.ID(), "event", msg.Event, "err", err)
		return ackPtr(protocol.AckFail(err))
	}

	now := h.now()
	switch req := p.(type) {
	case protocol.JoinRequest:
		_ = h.Join(c, req)
		return nil
	case protocol.Ping:
		h.Heartbeat(c)
		return nil
	case protocol.OrderStatusRequest:
		return h.relayFrom(c, req.RestaurantID, protocol.OrderStatusUpdate{
			OrderID:   req.OrderID,
			Status:    req.Status,
			Timestamp: now,
			UpdatedBy: h.actor(c),
		})
	case protocol.KitchenUpdateRequest:
		return h.relayFrom(c, req.RestaurantID, protocol.KitchenUpdate{
			OrderID:   req.OrderID,
			Status:    req.Status,
			Timestamp: now,
		})
	case protocol.NewOrderRequest:
		ack := h.relayFrom(c, req.RestaurantID, protocol.NewOrder{Order: req.Order})
		if ack.Success {
			if _, err := h.Relay(req.RestaurantID, protocol.NotificationFromOrder(req.Order, now)); err != nil {
				h.log.Warn("derived notification not relayed", "restaurantId", req.RestaurantID, "err", err)
			}
		}
		return ack
	case protocol.InventoryUpdateRequest:
		return h.relayFrom(c, req.RestaurantID, protocol.InventoryUpdate{
			ItemID:    req.ItemID,
			Quantity:  req.Quantity,
			Timestamp: now,
		})
	default:
		return ackPtr(protocol.AckFail(fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, msg.Event)))
	}
}

func (h *Hub) relayFrom(c Conn, restaurantID string, p protocol.Payload) *protocol.Ack {
	if h.RoomOf(c.ID()) != restaurantID {
		return ackPtr(protocol.AckFail(ErrNotJoined))
	}
	if _, err := h.Relay(restaurantID, p); err != nil {
		return ackPtr(protocol.AckFail(err))
	}
	return ackPtr(protocol.AckOK())
}

func (h *Hub) actor(c Conn) string {
	if c.UserID() != "" {
		return c.UserID()
	}
	return c.ID()
}

// RoomOf returns the restaurant a connection has joined, or "".
func (h *Hub) RoomOf(id string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.members[id]
}

// RoomLen returns the number of connections currently in a room.
func (h *Hub) RoomLen(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[restaurantID])
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Rooms:       len(h.rooms),
		Connections: len(h.conns),
		Joined:      len(h.members),
	}
}

// SweepStale drops connections whose last heartbeat is older than the registry
// threshold and closes them. It returns how many were swept.
func (h *Hub) SweepStale() int {
	ids := h.registry.Stale()
	for _, id := range ids {
		h.mu.RLock()
		c, ok := h.conns[id]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		h.Leave(c)
		if err := c.Close(); err != nil {
			h.log.Debug("closing stale connection", "clientId", id, "err", err)
		}
		h.log.Info("stale connection swept", "clientId", id)
	}
	return len(ids)
}

// RunSweeper calls SweepStale every interval until ctx is done.
func (h *Hub) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("stale sweeper stopped")
			return nil
		case <-ticker.C:
			if n := h.SweepStale(); n > 0 {
				h.log.Info("stale sweep finished", "swept", n)
			}
		}
	}
}

func (h *Hub) send(c Conn, p protocol.Payload) {
	msg, err := protocol.Encode(p)
	if err != nil {
		h.log.Error("encode event", "event", p.Event(), "err", err)
		return
	}
	h.deliver([]Conn{c}, msg)
}

func (h *Hub) broadcast(targets []Conn, p protocol.Payload) {
	if len(targets) == 0 {
		return
	}
	msg, err := protocol.Encode(p)
	if err != nil {
		h.log.Error("encode event", "event", p.Event(), "err", err)
		return
	}
	h.deliver(targets, msg)
}

// deliver queues msg on every target; a target that cannot accept it is closed
// and its transport loop takes care of leaving.
func (h *Hub) deliver(targets []Conn, msg protocol.Message) int {
	delivered := 0
	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			h.log.Warn("dropping client after failed send", "clientId", c.ID(), "event", msg.Event, "err", err)
			_ = c.Close()
			continue
		}
		delivered++
	}
	return delivered
}

func ackPtr(a protocol.Ack) *protocol.Ack { return &a }

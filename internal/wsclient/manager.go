package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"restaurant-pos-api/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Manager owns at most one live connection to the hub and keeps it joined to
// one restaurant, reconnecting with exponential backoff when it drops.
//
// Subscribed handlers run sequentially on the connection's reader goroutine and
// must not block; in particular they must not wait on an acknowledgment.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	gen            uint64 // bumped whenever the current connection is abandoned
	restaurantID   string
	token          string
	clientID       string
	attempts       int
	lastErr        error
	lastPong       time.Time
	reconnectTimer *time.Timer
	stopHeartbeat  chan struct{}
	pending        map[uint64]chan protocol.Ack
	nextAckID      uint64

	writeMu sync.Mutex

	subsMu    sync.RWMutex
	nextSubID uint64
	subs      map[protocol.EventName]map[uint64]func(protocol.Payload)
	stateSubs map[uint64]func(State)
}

func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		log:       cfg.Logger,
		state:     StateDisconnected,
		pending:   make(map[uint64]chan protocol.Ack),
		subs:      make(map[protocol.EventName]map[uint64]func(protocol.Payload)),
		stateSubs: make(map[uint64]func(State)),
	}
}

// Connect tears down any existing connection, dials the hub and joins
// restaurantID. It returns once restaurant-joined arrives or the attempt fails.
// Dial failures and timeouts keep retrying in the background; an explicit
// rejection by the hub does not.
func (m *Manager) Connect(ctx context.Context, restaurantID, token string) error {
	m.mu.Lock()
	m.cancelReconnectLocked()
	m.teardownLocked()
	m.restaurantID = restaurantID
	m.token = token
	m.attempts = 0
	m.lastErr = nil
	m.mu.Unlock()

	return m.dial(ctx)
}

func (m *Manager) dial(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	restaurantID, token := m.restaurantID, m.token
	m.mu.Unlock()
	m.setStateIf(gen, StateConnecting)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	target, err := withToken(m.cfg.URL, token)
	if err != nil {
		return m.connectFailed(gen, err, false)
	}
	ws, _, err := m.cfg.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		if ctx.Err() != nil {
			err = ErrConnectTimeout
		}
		return m.connectFailed(gen, fmt.Errorf("dial hub: %w", err), true)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = ws.Close()
		return ErrDisconnected
	}
	m.conn = ws
	m.mu.Unlock()

	joined := make(chan error, 1)
	go m.readLoop(gen, ws, joined)

	if err := m.write(ws, protocol.JoinRequest{RestaurantID: restaurantID, AuthToken: token}, 0); err != nil {
		return m.connectFailed(gen, fmt.Errorf("send join: %w", err), true)
	}

	select {
	case err := <-joined:
		if err != nil {
			var rejected *HandshakeError
			return m.connectFailed(gen, err, !errors.As(err, &rejected))
		}
	case <-ctx.Done():
		return m.connectFailed(gen, ErrConnectTimeout, true)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrDisconnected
	}
	m.attempts = 0
	m.lastErr = nil
	m.stopHeartbeat = make(chan struct{})
	go m.heartbeat(ws, m.stopHeartbeat)
	m.mu.Unlock()

	m.setStateIf(gen, StateConnected)
	m.log.Info("joined restaurant", "restaurantId", restaurantID, "clientId", m.ClientID())
	return nil
}

func (m *Manager) connectFailed(gen uint64, err error, retry bool) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return err
	}
	m.teardownLocked()
	m.lastErr = err
	m.mu.Unlock()

	m.log.Warn("connect failed", "err", err, "retry", retry)
	m.setState(StateError)
	if retry {
		m.scheduleReconnect()
	}
	return err
}

// connectionLost handles a drop after the join was acknowledged. Connect then
// returns ErrDisconnected if it had not finished yet.
func (m *Manager) connectionLost(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.mu.Unlock()

	m.log.Warn("connection lost", "err", cause)
	m.setState(StateDisconnected)
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.restaurantID == "" {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.lastErr = ErrReconnectExhausted
		attempts := m.attempts
		m.mu.Unlock()
		m.log.Error("giving up reconnecting", "attempts", attempts)
		m.setState(StateDisconnected)
		return
	}
	m.attempts++
	attempt := m.attempts
	gen := m.gen
	delay := BackoffDelay(m.cfg.BackoffUnit, attempt)
	m.cancelReconnectLocked()
	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		stale := gen != m.gen || m.restaurantID == ""
		m.mu.Unlock()
		if stale {
			return
		}
		// A failure here schedules the next attempt itself.
		_ = m.dial(context.Background())
	})
	m.mu.Unlock()

	m.log.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// teardownLocked abandons the current connection and rejects in-flight acks.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.stopHeartbeat != nil {
		close(m.stopHeartbeat)
		m.stopHeartbeat = nil
	}
	if m.conn != nil {
		_ = m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = m.conn.Close()
		m.conn = nil
	}
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	m.clientID = ""
}

// Disconnect closes the connection and stops reconnecting. It is safe to call
// at any time and more than once.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelReconnectLocked()
	active := m.conn != nil || m.state != StateDisconnected
	m.restaurantID = ""
	m.token = ""
	m.attempts = 0
	m.teardownLocked()
	m.mu.Unlock()

	if active {
		m.log.Info("disconnected")
	}
	m.setState(StateDisconnected)
}

func (m *Manager) readLoop(gen uint64, ws *websocket.Conn, joined chan<- error) {
	handshaking := true
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if handshaking {
				joined <- fmt.Errorf("connection closed during join: %w", err)
			} else {
				m.connectionLost(gen, err)
			}
			return
		}

		msg, err := protocol.Parse(frame)
		if err != nil {
			m.log.Warn("discarding malformed frame", "err", err)
			continue
		}
		p, err := protocol.DecodeServer(msg)
		if err != nil {
			m.log.Warn("discarding invalid event", "event", msg.Event, "err", err)
			continue
		}

		switch v := p.(type) {
		case protocol.Ack:
			m.resolveAck(msg.AckID, v)
			continue
		case protocol.RestaurantJoined:
			if handshaking {
				handshaking = false
				m.mu.Lock()
				m.clientID = v.ClientID
				m.mu.Unlock()
				joined <- nil
			}
		case protocol.ErrorPayload:
			if handshaking {
				handshaking = false
				joined <- &HandshakeError{Message: v.Message}
			}
		case protocol.Pong:
			m.mu.Lock()
			m.lastPong = time.Now()
			m.mu.Unlock()
		}
		m.dispatch(p)
	}
}

// heartbeat sends ping on an interval. A missing pong is not acted upon; the
// transport's own close detection drives reconnects.
func (m *Manager) heartbeat(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.write(ws, protocol.Ping{}, 0); err != nil {
				m.log.Debug("heartbeat not sent", "err", err)
			}
		}
	}
}

func (m *Manager) write(ws *websocket.Conn, p protocol.Payload, ackID uint64) error {
	frame, err := protocol.Frame(p, ackID)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, frame)
}

// emitWithAck builds the request for the joined restaurant and waits for its
// ack. Nothing is validated or sent unless the manager is joined.
func (m *Manager) emitWithAck(ctx context.Context, build func(restaurantID string) protocol.Payload) error {
	m.mu.Lock()
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	p := build(m.restaurantID)
	if err := protocol.Validate(p); err != nil {
		m.mu.Unlock()
		return err
	}
	m.nextAckID++
	id := m.nextAckID
	ch := make(chan protocol.Ack, 1)
	m.pending[id] = ch
	ws := m.conn
	m.mu.Unlock()

	if err := m.write(ws, p, id); err != nil {
		m.dropPending(id)
		return fmt.Errorf("send %s: %w", p.Event(), err)
	}

	timer := time.NewTimer(m.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case ack, ok := <-ch:
		if !ok {
			return ErrDisconnected
		}
		if !ack.Success {
			return &AckError{Event: p.Event(), Message: ack.Message}
		}
		return nil
	case <-timer.C:
		m.dropPending(id)
		return ErrAckTimeout
	case <-ctx.Done():
		m.dropPending(id)
		return ctx.Err()
	}
}

func (m *Manager) resolveAck(id uint64, ack protocol.Ack) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	delete(m.pending, id)
	m.mu.Unlock()
	if !ok {
		m.log.Debug("ack for unknown request", "ackId", id)
		return
	}
	ch <- ack
}

func (m *Manager) dropPending(id uint64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// UpdateOrderStatus asks the hub to broadcast an order status change.
func (m *Manager) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	return m.emitWithAck(ctx, func(rid string) protocol.Payload {
		return protocol.OrderStatusRequest{OrderID: orderID, Status: status, RestaurantID: rid}
	})
}

// UpdateKitchen asks the hub to broadcast a kitchen progress change.
func (m *Manager) UpdateKitchen(ctx context.Context, orderID, status string) error {
	return m.emitWithAck(ctx, func(rid string) protocol.Payload {
		return protocol.KitchenUpdateRequest{OrderID: orderID, Status: status, RestaurantID: rid}
	})
}

// UpdateInventory asks the hub to broadcast a stock level.
func (m *Manager) UpdateInventory(ctx context.Context, itemID string, quantity float64) error {
	return m.emitWithAck(ctx, func(rid string) protocol.Payload {
		return protocol.InventoryUpdateRequest{ItemID: itemID, Quantity: quantity, RestaurantID: rid}
	})
}

// PublishNewOrder asks the hub to broadcast an order and its notification.
func (m *Manager) PublishNewOrder(ctx context.Context, order json.RawMessage) error {
	return m.emitWithAck(ctx, func(rid string) protocol.Payload {
		return protocol.NewOrderRequest{Order: order, RestaurantID: rid}
	})
}

// Subscribe registers fn for one server event. The returned func unsubscribes.
func (m *Manager) Subscribe(event protocol.EventName, fn func(protocol.Payload)) func() {
	m.subsMu.Lock()
	m.nextSubID++
	id := m.nextSubID
	if m.subs[event] == nil {
		m.subs[event] = make(map[uint64]func(protocol.Payload))
	}
	m.subs[event][id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs[event], id)
			m.subsMu.Unlock()
		})
	}
}

// OnStateChange registers fn for status transitions. The returned func unsubscribes.
func (m *Manager) OnStateChange(fn func(State)) func() {
	m.subsMu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.stateSubs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.stateSubs, id)
			m.subsMu.Unlock()
		})
	}
}

func (m *Manager) dispatch(p protocol.Payload) {
	m.subsMu.RLock()
	handlers := make([]func(protocol.Payload), 0, len(m.subs[p.Event()]))
	for _, fn := range m.subs[p.Event()] {
		handlers = append(handlers, fn)
	}
	m.subsMu.RUnlock()

	for _, fn := range handlers {
		m.safeCall(p.Event(), func() { fn(p) })
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.applyState(s)
}

// setStateIf applies s only while gen is still the current connection.
func (m *Manager) setStateIf(gen uint64, s State) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.applyState(s)
}

// applyState is called with m.mu held and releases it before notifying.
func (m *Manager) applyState(s State) {
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	m.subsMu.RLock()
	handlers := make([]func(State), 0, len(m.stateSubs))
	for _, fn := range m.stateSubs {
		handlers = append(handlers, fn)
	}
	m.subsMu.RUnlock()

	for _, fn := range handlers {
		m.safeCall("state", func() { fn(s) })
	}
}

func (m *Manager) safeCall(name any, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("subscriber panicked", "event", name, "panic", r)
		}
	}()
	fn()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the manager is joined to a restaurant.
func (m *Manager) Connected() bool { return m.State() == StateConnected }

func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// LastPong is when the hub last answered a heartbeat.
func (m *Manager) LastPong() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPong
}

func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientID
}

func (m *Manager) RestaurantID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restaurantID
}

func withToken(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse hub url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

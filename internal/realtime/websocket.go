package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"restaurant-pos-api/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// WSConn adapts a gorilla websocket connection to the hub.
type WSConn struct {
	id     string
	userID string
	ws     *websocket.Conn
	hub    *Hub
	log    *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSConn(ws *websocket.Conn, userID string, hub *Hub, log *slog.Logger) *WSConn {
	id := uuid.NewString()
	return &WSConn{
		id:     id,
		userID: userID,
		ws:     ws,
		hub:    hub,
		log:    log.With("clientId", id),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *WSConn) ID() string     { return c.id }
func (c *WSConn) UserID() string { return c.userID }

func (c *WSConn) Send(msg protocol.Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *WSConn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// Close stops the write pump, which sends a close frame and tears down the socket.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Serve registers the connection with the hub and blocks until the client goes away.
func (c *WSConn) Serve() {
	c.hub.Connect(c)
	go c.writePump()
	c.readPump()
}

func (c *WSConn) readPump() {
	defer func() {
		c.hub.Leave(c)
		_ = c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.Parse(frame)
		if err != nil {
			c.log.Warn("discarding malformed frame", "err", err)
			continue
		}
		ack := c.hub.Handle(c, msg)
		if ack == nil || msg.AckID == 0 {
			continue
		}
		reply, err := protocol.Frame(*ack, msg.AckID)
		if err != nil {
			c.log.Error("encode ack", "err", err)
			continue
		}
		if err := c.enqueue(reply); err != nil {
			c.log.Warn("ack not delivered", "ackId", msg.AckID, "err", err)
		}
	}
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("websocket write failed", "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

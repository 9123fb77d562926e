package wsclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection status exposed to the UI.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected" // joined to a restaurant
	StateError        State = "error"
)

// Dialer opens the websocket. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Config struct {
	// URL of the hub's websocket endpoint, e.g. ws://localhost:8008/ws.
	URL string

	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	MaxReconnectAttempts int
	// BackoffUnit is multiplied by 2^attempt between reconnects.
	BackoffUnit time.Duration
	AckTimeout  time.Duration

	Dialer Dialer
	Logger *slog.Logger
}

const (
	DefaultConnectTimeout       = 10 * time.Second
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultBackoffUnit          = time.Second
	DefaultAckTimeout           = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = DefaultBackoffUnit
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.ConnectTimeout,
		}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// BackoffDelay is the wait before reconnect attempt n (starting at 1): 2^n units.
func BackoffDelay(unit time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return unit << uint(attempt)
}

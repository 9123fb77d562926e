package wsclient

import (
	"errors"
	"fmt"

	"restaurant-pos-api/internal/protocol"
)

var (
	ErrNotConnected       = errors.New("not connected to a restaurant")
	ErrDisconnected       = errors.New("connection closed")
	ErrConnectTimeout     = errors.New("timed out waiting for restaurant-joined")
	ErrAckTimeout         = errors.New("timed out waiting for acknowledgment")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// HandshakeError is an explicit rejection of the join by the hub. It is not retried.
type HandshakeError struct {
	Message string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("join rejected: %s", e.Message)
}

// AckError is an acknowledgment that came back with success=false.
type AckError struct {
	Event   protocol.EventName
	Message string
}

func (e *AckError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected", e.Event)
	}
	return fmt.Sprintf("%s rejected: %s", e.Event, e.Message)
}

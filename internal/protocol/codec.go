package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrUnknownEvent = errors.New("unknown event")

// Message is the envelope carried by the streaming transport.
type Message struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID uint64          `json:"ackId,omitempty"`
}

// ValidationError reports a payload that does not match its event schema.
type ValidationError struct {
	Event EventName
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Event, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
		raw := bytes.TrimSpace(fl.Field().Bytes())
		return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
	})
	return v
}

// Validate checks p against the schema of its event.
func Validate(p Payload) error {
	if err := validate.Struct(p); err != nil {
		return &ValidationError{Event: p.Event(), Err: err}
	}
	return nil
}

// Encode validates p and wraps it into an envelope.
func Encode(p Payload) (Message, error) {
	if err := Validate(p); err != nil {
		return Message{}, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s: %w", p.Event(), err)
	}
	return Message{Event: p.Event(), Data: data}, nil
}

// Frame encodes p as a ready-to-write transport frame.
func Frame(p Payload, ackID uint64) ([]byte, error) {
	msg, err := Encode(p)
	if err != nil {
		return nil, err
	}
	msg.AckID = ackID
	return json.Marshal(msg)
}

// Parse reads one transport frame.
func Parse(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("parse frame: %w", err)
	}
	if msg.Event == "" {
		return Message{}, errors.New("parse frame: missing event name")
	}
	return msg, nil
}

type decoder func(EventName, json.RawMessage) (Payload, error)

func decodeAs[T Payload](name EventName, data json.RawMessage) (Payload, error) {
	var p T
	if len(data) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, &ValidationError{Event: name, Err: err}
		}
	}
	if err := validate.Struct(p); err != nil {
		return nil, &ValidationError{Event: name, Err: err}
	}
	return p, nil
}

// JoinRequest is validated by the hub itself so that a missing restaurant id
// produces an error event instead of a decode failure.
var clientEvents = map[EventName]decoder{
	EventJoinRestaurant:    decodeAs[JoinRequest],
	EventPing:              decodeAs[Ping],
	EventUpdateOrderStatus: decodeAs[OrderStatusRequest],
	EventKitchenUpdate:     decodeAs[KitchenUpdateRequest],
	EventNewOrder:          decodeAs[NewOrderRequest],
	EventInventoryUpdate:   decodeAs[InventoryUpdateRequest],
}

var serverEvents = map[EventName]decoder{
	EventRestaurantJoined:  decodeAs[RestaurantJoined],
	EventError:             decodeAs[ErrorPayload],
	EventClientJoined:      decodeAs[ClientJoined],
	EventOrderStatusUpdate: decodeAs[OrderStatusUpdate],
	EventKitchenUpdate:     decodeAs[KitchenUpdate],
	EventNewOrder:          decodeAs[NewOrder],
	EventNewNotification:   decodeAs[NotificationPayload],
	EventInventoryUpdate:   decodeAs[InventoryUpdate],
	EventPong:              decodeAs[Pong],
	EventAck:               decodeAs[Ack],
}

// DecodeClient decodes an event sent by a client to the hub.
func DecodeClient(msg Message) (Payload, error) {
	return decodeWith(clientEvents, msg)
}

// DecodeServer decodes an event sent by the hub to a client.
func DecodeServer(msg Message) (Payload, error) {
	return decodeWith(serverEvents, msg)
}

func decodeWith(table map[EventName]decoder, msg Message) (Payload, error) {
	dec, ok := table[msg.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
	return dec(msg.Event, msg.Data)
}

type orderSummary struct {
	ID          string `json:"_id"`
	AltID       string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	TableNumber any    `json:"tableNumber"`
}

// NotificationFromOrder derives the new_notification broadcast that accompanies a new order.
func NotificationFromOrder(order json.RawMessage, now time.Time) NotificationPayload {
	var summary orderSummary
	_ = json.Unmarshal(order, &summary)

	orderID := summary.ID
	if orderID == "" {
		orderID = summary.AltID
	}
	label := summary.OrderNumber
	if label == "" {
		label = orderID
	}

	message := "A new order has been received"
	if label != "" {
		message = fmt.Sprintf("Order %s has been received", label)
	}
	if summary.TableNumber != nil && summary.TableNumber != "" {
		message = fmt.Sprintf("%s for table %v", message, summary.TableNumber)
	}

	data := map[string]any{}
	if orderID != "" {
		data["orderId"] = orderID
	}

	return NotificationPayload{
		ID:        uuid.NewString(),
		Type:      "order",
		Title:     "New Order",
		Message:   message,
		Priority:  "high",
		Data:      data,
		Timestamp: now,
	}
}

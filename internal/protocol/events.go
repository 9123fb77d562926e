package protocol

import (
	"encoding/json"
	"time"
)

// EventName is the transport-level name of a realtime event.
type EventName string

const (
	EventJoinRestaurant    EventName = "join-restaurant"
	EventRestaurantJoined  EventName = "restaurant-joined"
	EventError             EventName = "error"
	EventClientJoined      EventName = "client-joined"
	EventUpdateOrderStatus EventName = "update_order_status"
	EventOrderStatusUpdate EventName = "order_status_update"
	EventKitchenUpdate     EventName = "kitchen_update"
	EventNewOrder          EventName = "new_order"
	EventNewNotification   EventName = "new_notification"
	EventInventoryUpdate   EventName = "inventory_update"
	EventPing              EventName = "ping"
	EventPong              EventName = "pong"
	EventAck               EventName = "ack"
)

// StatusConnected is the only status carried by a restaurant-joined acknowledgment.
const StatusConnected = "connected"

// Payload is the closed set of event bodies exchanged between hub and clients.
// Every implementation lives in this package.
type Payload interface {
	Event() EventName
	payload()
}

// Client -> server

type JoinRequest struct {
	RestaurantID string `json:"restaurantId"`
	AuthToken    string `json:"authToken,omitempty"`
}

type Ping struct{}

type OrderStatusRequest struct {
	OrderID      string `json:"orderId" validate:"required"`
	Status       string `json:"status" validate:"required"`
	RestaurantID string `json:"restaurantId" validate:"required"`
}

type KitchenUpdateRequest struct {
	OrderID      string `json:"orderId" validate:"required"`
	Status       string `json:"status" validate:"required"`
	RestaurantID string `json:"restaurantId" validate:"required"`
}

type NewOrderRequest struct {
	Order        json.RawMessage `json:"order" validate:"required,jsonobject"`
	RestaurantID string          `json:"restaurantId" validate:"required"`
}

type InventoryUpdateRequest struct {
	ItemID       string  `json:"itemId" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	RestaurantID string  `json:"restaurantId" validate:"required"`
}

// Server -> client

type RestaurantJoined struct {
	RestaurantID string `json:"restaurantId" validate:"required"`
	ClientID     string `json:"clientId" validate:"required"`
	Status       string `json:"status" validate:"required,eq=connected"`
}

type ErrorPayload struct {
	Message string `json:"message" validate:"required"`
}

type ClientJoined struct {
	ClientID     string `json:"clientId" validate:"required"`
	TotalClients int    `json:"totalClients" validate:"gte=0"`
}

type OrderStatusUpdate struct {
	OrderID   string    `json:"orderId" validate:"required"`
	Status    string    `json:"status" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	UpdatedBy string    `json:"updatedBy"`
}

type KitchenUpdate struct {
	OrderID   string    `json:"orderId" validate:"required"`
	Status    string    `json:"status" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// NewOrder carries the order object verbatim; it marshals to the raw order itself.
type NewOrder struct {
	Order json.RawMessage `validate:"required,jsonobject"`
}

func (n NewOrder) MarshalJSON() ([]byte, error) {
	if len(n.Order) == 0 {
		return []byte("null"), nil
	}
	return n.Order, nil
}

func (n *NewOrder) UnmarshalJSON(b []byte) error {
	n.Order = append(json.RawMessage(nil), b...)
	return nil
}

type NotificationPayload struct {
	ID        string         `json:"_id" validate:"required"`
	Type      string         `json:"type" validate:"required,oneof=order kitchen inventory system"`
	Title     string         `json:"title" validate:"required"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority" validate:"required,oneof=urgent high medium low"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp" validate:"required"`
}

type InventoryUpdate struct {
	ItemID    string    `json:"itemId" validate:"required"`
	Name      string    `json:"name,omitempty"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

type Pong struct{}

// Ack is the single reply correlated to one outbound emit.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AckOK is the acknowledgment of an accepted relay.
func AckOK() Ack { return Ack{Success: true} }

// AckFail reports err back to the emitting client.
func AckFail(err error) Ack { return Ack{Success: false, Message: err.Error()} }

func (JoinRequest) Event() EventName            { return EventJoinRestaurant }
func (Ping) Event() EventName                   { return EventPing }
func (OrderStatusRequest) Event() EventName     { return EventUpdateOrderStatus }
func (KitchenUpdateRequest) Event() EventName   { return EventKitchenUpdate }
func (NewOrderRequest) Event() EventName        { return EventNewOrder }
func (InventoryUpdateRequest) Event() EventName { return EventInventoryUpdate }
func (RestaurantJoined) Event() EventName       { return EventRestaurantJoined }
func (ErrorPayload) Event() EventName           { return EventError }
func (ClientJoined) Event() EventName           { return EventClientJoined }
func (OrderStatusUpdate) Event() EventName      { return EventOrderStatusUpdate }
func (KitchenUpdate) Event() EventName          { return EventKitchenUpdate }
func (NewOrder) Event() EventName               { return EventNewOrder }
func (NotificationPayload) Event() EventName    { return EventNewNotification }
func (InventoryUpdate) Event() EventName        { return EventInventoryUpdate }
func (Pong) Event() EventName                   { return EventPong }
func (Ack) Event() EventName                    { return EventAck }

func (JoinRequest) payload()            {}
func (Ping) payload()                   {}
func (OrderStatusRequest) payload()     {}
func (KitchenUpdateRequest) payload()   {}
func (NewOrderRequest) payload()        {}
func (InventoryUpdateRequest) payload() {}
func (RestaurantJoined) payload()       {}
func (ErrorPayload) payload()           {}
func (ClientJoined) payload()           {}
func (OrderStatusUpdate) payload()      {}
func (KitchenUpdate) payload()          {}
func (NewOrder) payload()               {}
func (NotificationPayload) payload()    {}
func (InventoryUpdate) payload()        {}
func (Pong) payload()                   {}
func (Ack) payload()                    {}

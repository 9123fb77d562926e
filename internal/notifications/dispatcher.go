package notifications

import (
	"fmt"
	"log/slog"
	"time"

	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/protocol"

	"github.com/google/uuid"
)

// Source delivers server events; *wsclient.Manager satisfies it.
type Source interface {
	Subscribe(event protocol.EventName, fn func(protocol.Payload)) func()
}

// derivedIDs namespaces the ids of notifications built from non-notification events.
var derivedIDs = uuid.MustParse("4f1c2a8e-6d3b-5e7a-9b0c-1d2e3f405162")

// Attach feeds the store from src until the returned func is called.
func Attach(src Source, store *Store, log *slog.Logger) func() {
	events := []protocol.EventName{
		protocol.EventNewNotification,
		protocol.EventOrderStatusUpdate,
		protocol.EventKitchenUpdate,
		protocol.EventInventoryUpdate,
	}
	unsubscribes := make([]func(), 0, len(events))
	for _, event := range events {
		unsubscribes = append(unsubscribes, src.Subscribe(event, func(p protocol.Payload) {
			n, ok := FromEvent(p)
			if !ok {
				log.Debug("event carries no notification", "event", p.Event())
				return
			}
			if !store.Add(n) {
				log.Debug("duplicate notification ignored", "notificationId", n.ID)
			}
		}))
	}
	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}

// FromEvent converts a pushed event into a notification. Events that are not
// notifications themselves get an id derived from their content, so a
// redelivered event is deduplicated.
func FromEvent(p protocol.Payload) (Notification, bool) {
	switch e := p.(type) {
	case protocol.NotificationPayload:
		return Notification{
			ID:        e.ID,
			Type:      e.Type,
			Title:     e.Title,
			Message:   e.Message,
			Priority:  models.Priority(e.Priority),
			Data:      e.Data,
			CreatedAt: e.Timestamp,
		}, true
	case protocol.OrderStatusUpdate:
		priority := models.PriorityMedium
		if e.Status == string(models.OrderReady) || e.Status == string(models.OrderCancelled) {
			priority = models.PriorityHigh
		}
		return Notification{
			ID:        derivedID(p.Event(), e.OrderID, e.Status, e.Timestamp),
			Type:      string(models.NotificationOrder),
			Title:     "Order Updated",
			Message:   fmt.Sprintf("Order %s is now %s", e.OrderID, e.Status),
			Priority:  priority,
			Data:      map[string]any{"orderId": e.OrderID, "status": e.Status, "updatedBy": e.UpdatedBy},
			CreatedAt: e.Timestamp,
		}, true
	case protocol.KitchenUpdate:
		priority := models.PriorityLow
		if e.Status == string(models.KitchenReady) {
			priority = models.PriorityHigh
		}
		return Notification{
			ID:        derivedID(p.Event(), e.OrderID, e.Status, e.Timestamp),
			Type:      string(models.NotificationKitchen),
			Title:     "Kitchen Update",
			Message:   fmt.Sprintf("Order %s is %s in the kitchen", e.OrderID, e.Status),
			Priority:  priority,
			Data:      map[string]any{"orderId": e.OrderID, "status": e.Status},
			CreatedAt: e.Timestamp,
		}, true
	case protocol.InventoryUpdate:
		name := e.Name
		if name == "" {
			name = e.ItemID
		}
		return Notification{
			ID:        derivedID(p.Event(), e.ItemID, fmt.Sprint(e.Quantity), e.Timestamp),
			Type:      string(models.NotificationInventory),
			Title:     "Stock Updated",
			Message:   fmt.Sprintf("%s stock is now %g %s", name, e.Quantity, e.Unit),
			Priority:  models.PriorityLow,
			Data:      map[string]any{"itemId": e.ItemID, "quantity": e.Quantity},
			CreatedAt: e.Timestamp,
		}, true
	}
	return Notification{}, false
}

func derivedID(event protocol.EventName, subject, state string, at time.Time) string {
	key := fmt.Sprintf("%s|%s|%s|%d", event, subject, state, at.UnixNano())
	return uuid.NewSHA1(derivedIDs, []byte(key)).String()
}

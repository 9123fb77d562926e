package handlers

import (
	"fmt"
	"net/http"
	"time"

	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UpdateStockRequest sets the absolute quantity of an item
type UpdateStockRequest struct {
	Quantity *float64 `json:"quantity" binding:"required,gte=0"`
}

// GetInventory handles GET /api/inventory
func (h *Handler) GetInventory(c *gin.Context) {
	p := principalFrom(c)

	query := h.db.Where("restaurant_id = ?", p.RestaurantID)
	if c.Query("lowStock") == "true" {
		query = query.Where("low_stock_threshold > 0 AND quantity <= low_stock_threshold")
	}

	var items []models.InventoryItem
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		h.log.Error("fetch inventory failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch inventory")
		return
	}
	respond(c, http.StatusOK, "Inventory fetched", gin.H{
		"items": items,
		"count": len(items),
	})
}

/*
UpdateStock handles PATCH /api/inventory/:id/stock
Pushes inventory_update, plus a new_notification when the item drops to its threshold.
*/
func (h *Handler) UpdateStock(c *gin.Context) {
	p := principalFrom(c)

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}

	var item models.InventoryItem
	if err := h.db.Where("id = ? AND restaurant_id = ?", c.Param("id"), p.RestaurantID).First(&item).Error; err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "Inventory item not found")
			return
		}
		h.log.Error("fetch inventory item failed", "itemId", c.Param("id"), "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch inventory item")
		return
	}

	wasLow := item.LowStock()
	item.Quantity = *req.Quantity
	item.UpdatedBy = p.actor()
	if err := h.db.Model(&item).Select("Quantity", "UpdatedBy").Updates(&item).Error; err != nil {
		h.log.Error("update stock failed", "itemId", item.ID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to update stock")
		return
	}

	now := h.now()
	h.emit(p.RestaurantID, protocol.InventoryUpdate{
		ItemID:    item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Unit:      item.Unit,
		Timestamp: now,
	})

	if item.LowStock() && !wasLow {
		note := lowStockNotification(item, now)
		if err := h.db.Create(ptr(notificationRecord(p.RestaurantID, note))).Error; err != nil {
			h.log.Error("persist low stock notification failed", "itemId", item.ID, "err", err)
		} else {
			h.emit(p.RestaurantID, note)
		}
	}

	respond(c, http.StatusOK, "Stock updated", item)
}

func lowStockNotification(item models.InventoryItem, now time.Time) protocol.NotificationPayload {
	priority := models.PriorityHigh
	message := fmt.Sprintf("%s is running low: %g %s left", item.Name, item.Quantity, item.Unit)
	if item.Quantity <= 0 {
		priority = models.PriorityUrgent
		message = fmt.Sprintf("%s is out of stock", item.Name)
	}
	return protocol.NotificationPayload{
		ID:       uuid.NewString(),
		Type:     string(models.NotificationInventory),
		Title:    "Low Stock",
		Message:  message,
		Priority: string(priority),
		Data: map[string]any{
			"itemId":   item.ID,
			"quantity": item.Quantity,
		},
		Timestamp: now,
	}
}

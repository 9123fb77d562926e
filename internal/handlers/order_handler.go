package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// CreateOrderRequest represents the request payload for creating an order
type CreateOrderRequest struct {
	OrderNumber string             `json:"orderNumber"`
	TableNumber *int               `json:"tableNumber" binding:"omitempty,gt=0"`
	Items       []models.OrderItem `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents a minimal request to change status
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateKitchenStatusRequest moves an order through the kitchen
type UpdateKitchenStatusRequest struct {
	Status models.KitchenStatus `json:"status" binding:"required"`
}

/*
GetOrders handles GET /api/orders
Returns the orders of the caller's restaurant.
Query params: page (default 1), limit (default 20), status, sort (asc|desc on created_at, default desc).
*/
func (h *Handler) GetOrders(c *gin.Context) {
	p := principalFrom(c)
	page, limit := pageParams(c, 20)
	sortParam := strings.ToLower(c.DefaultQuery("sort", "desc"))

	order := "created_at desc"
	if sortParam == "asc" {
		order = "created_at asc"
	}

	query := h.db.Model(&models.Order{}).Where("restaurant_id = ?", p.RestaurantID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.log.Error("count orders failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to count orders")
		return
	}

	var orders []models.Order
	if err := query.Session(&gorm.Session{}).Order(order).Limit(limit).Offset((page - 1) * limit).Find(&orders).Error; err != nil {
		h.log.Error("fetch orders failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	respond(c, http.StatusOK, "Orders fetched", gin.H{
		"orders": orders,
		"count":  len(orders),
		"total":  total,
		"page":   page,
		"limit":  limit,
		"sort":   sortParam,
	})
}

// GetOrderByID handles GET /api/orders/:id
func (h *Handler) GetOrderByID(c *gin.Context) {
	order, ok := h.loadOrder(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Order fetched", order)
}

/*
CreateOrder handles POST /api/orders
Persists the order and its notification, then pushes new_order and new_notification.
*/
func (h *Handler) CreateOrder(c *gin.Context) {
	p := principalFrom(c)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}

	order := models.Order{
		ID:            uuid.NewString(),
		RestaurantID:  p.RestaurantID,
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
		TableNumber:   req.TableNumber,
		Items:         req.Items,
		Total:         lo.SumBy(req.Items, func(i models.OrderItem) float64 { return i.Price * float64(i.Quantity) }),
		Status:        models.OrderPending,
		KitchenStatus: models.KitchenPending,
		CreatedBy:     p.actor(),
		UpdatedBy:     p.actor(),
	}

	var note protocol.NotificationPayload
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if order.OrderNumber == "" {
			var n int64
			if err := tx.Unscoped().Model(&models.Order{}).Where("restaurant_id = ?", p.RestaurantID).Count(&n).Error; err != nil {
				return err
			}
			order.OrderNumber = fmt.Sprintf("ORD-%04d", n+1)
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		raw, err := json.Marshal(order)
		if err != nil {
			return err
		}
		note = protocol.NotificationFromOrder(raw, h.now())
		return tx.Create(ptr(notificationRecord(p.RestaurantID, note))).Error
	})
	if err != nil {
		h.log.Error("create order failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to create order")
		return
	}

	raw, err := json.Marshal(order)
	if err == nil {
		h.emit(p.RestaurantID, protocol.NewOrder{Order: raw})
	}
	h.emit(p.RestaurantID, note)

	h.log.Info("order created", "restaurantId", p.RestaurantID, "orderId", order.ID, "orderNumber", order.OrderNumber)
	respond(c, http.StatusCreated, "Order created", order)
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	if !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid status", Errors: map[string]string{"status": "unknown order status"}})
		return
	}

	order, ok := h.loadOrder(c)
	if !ok {
		return
	}
	p := principalFrom(c)

	order.Status = req.Status
	order.UpdatedBy = p.actor()
	if err := h.db.Model(&order).Select("Status", "UpdatedBy").Updates(&order).Error; err != nil {
		h.log.Error("update order status failed", "orderId", order.ID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	h.emit(p.RestaurantID, protocol.OrderStatusUpdate{
		OrderID:   order.ID,
		Status:    string(req.Status),
		Timestamp: h.now(),
		UpdatedBy: p.actor(),
	})
	respond(c, http.StatusOK, "Order status updated", order)
}

// UpdateKitchenStatus handles PATCH /api/orders/:id/kitchen
func (h *Handler) UpdateKitchenStatus(c *gin.Context) {
	var req UpdateKitchenStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	if !models.ValidKitchenStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid status", Errors: map[string]string{"status": "unknown kitchen status"}})
		return
	}

	order, ok := h.loadOrder(c)
	if !ok {
		return
	}
	p := principalFrom(c)

	order.KitchenStatus = req.Status
	order.UpdatedBy = p.actor()
	if err := h.db.Model(&order).Select("KitchenStatus", "UpdatedBy").Updates(&order).Error; err != nil {
		h.log.Error("update kitchen status failed", "orderId", order.ID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to update kitchen status")
		return
	}

	h.emit(p.RestaurantID, protocol.KitchenUpdate{
		OrderID:   order.ID,
		Status:    string(req.Status),
		Timestamp: h.now(),
	})
	respond(c, http.StatusOK, "Kitchen status updated", order)
}

// loadOrder fetches :id within the caller's restaurant, writing the error response itself.
func (h *Handler) loadOrder(c *gin.Context) (models.Order, bool) {
	p := principalFrom(c)
	var order models.Order
	err := h.db.Where("id = ? AND restaurant_id = ?", c.Param("id"), p.RestaurantID).First(&order).Error
	if err == nil {
		return order, true
	}
	if database.IsNotFound(err) {
		fail(c, http.StatusNotFound, "Order not found")
	} else {
		h.log.Error("fetch order failed", "orderId", c.Param("id"), "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch order")
	}
	return models.Order{}, false
}

func ptr[T any](v T) *T { return &v }

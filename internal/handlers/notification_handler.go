package handlers

import (
	"net/http"

	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/protocol"

	"github.com/gin-gonic/gin"
)

// byPriorityThenNewest is the order a dashboard seeds its notification list with.
const byPriorityThenNewest = "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, created_at DESC"

func notificationRecord(restaurantID string, n protocol.NotificationPayload) models.Notification {
	return models.Notification{
		ID:           n.ID,
		RestaurantID: restaurantID,
		Type:         models.NotificationType(n.Type),
		Title:        n.Title,
		Message:      n.Message,
		Priority:     models.Priority(n.Priority),
		Data:         n.Data,
		CreatedAt:    n.Timestamp,
	}
}

// GetNotifications handles GET /api/notifications
// Query params: limit (default 50), unread=true to skip read entries.
func (h *Handler) GetNotifications(c *gin.Context) {
	p := principalFrom(c)
	_, limit := pageParams(c, 50)

	query := h.db.Model(&models.Notification{}).Where("restaurant_id = ?", p.RestaurantID)
	if c.Query("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order(byPriorityThenNewest).Limit(limit).Find(&notifications).Error; err != nil {
		h.log.Error("fetch notifications failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	var unread int64
	if err := h.db.Model(&models.Notification{}).
		Where("restaurant_id = ? AND read = ?", p.RestaurantID, false).
		Count(&unread).Error; err != nil {
		h.log.Error("count unread notifications failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	respond(c, http.StatusOK, "Notifications fetched", gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read
// Marking an already read notification is a no-op.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	p := principalFrom(c)

	var n models.Notification
	if err := h.db.Where("id = ? AND restaurant_id = ?", c.Param("id"), p.RestaurantID).First(&n).Error; err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "Notification not found")
			return
		}
		h.log.Error("fetch notification failed", "notificationId", c.Param("id"), "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch notification")
		return
	}

	if !n.Read {
		n.Read = true
		if err := h.db.Model(&n).Select("Read").Updates(&n).Error; err != nil {
			h.log.Error("mark notification read failed", "notificationId", n.ID, "err", err)
			fail(c, http.StatusInternalServerError, "Failed to update notification")
			return
		}
	}
	respond(c, http.StatusOK, "Notification marked as read", n)
}

// MarkAllNotificationsRead handles PATCH /api/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	p := principalFrom(c)

	res := h.db.Model(&models.Notification{}).
		Where("restaurant_id = ? AND read = ?", p.RestaurantID, false).
		Update("read", true)
	if res.Error != nil {
		h.log.Error("mark all notifications read failed", "restaurantId", p.RestaurantID, "err", res.Error)
		fail(c, http.StatusInternalServerError, "Failed to update notifications")
		return
	}
	respond(c, http.StatusOK, "Notifications marked as read", gin.H{"updated": res.RowsAffected})
}

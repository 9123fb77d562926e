package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRealtimeStats handles GET /api/realtime/stats
func (h *Handler) GetRealtimeStats(c *gin.Context) {
	if h.stats == nil {
		fail(c, http.StatusServiceUnavailable, "Realtime hub is not running")
		return
	}
	p := principalFrom(c)
	s := h.stats.Stats()
	respond(c, http.StatusOK, "Realtime stats", gin.H{
		"rooms":             s.Rooms,
		"connections":       s.Connections,
		"joined":            s.Joined,
		"restaurantId":      p.RestaurantID,
		"restaurantClients": h.stats.RoomLen(p.RestaurantID),
	})
}

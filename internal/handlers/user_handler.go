package handlers

import (
	"net/http"

	"restaurant-pos-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type UserResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	RestaurantID string `json:"restaurantId"`
	Role         string `json:"role"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, RestaurantID: u.RestaurantID, Role: string(u.Role)}
}

// GetStaff returns the staff of the caller's restaurant
// GET /api/staff
func (h *Handler) GetStaff(c *gin.Context) {
	p := principalFrom(c)

	var users []models.User
	if err := h.db.Where("restaurant_id = ?", p.RestaurantID).Order("username asc").Find(&users).Error; err != nil {
		h.log.Error("fetch staff failed", "restaurantId", p.RestaurantID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to fetch staff")
		return
	}

	resp := lo.Map(users, func(u models.User, _ int) UserResponse { return toUserResponse(u) })
	respond(c, http.StatusOK, "Staff fetched", gin.H{
		"users": resp,
		"count": len(resp),
	})
}

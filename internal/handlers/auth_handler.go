package handlers

import (
	"net/http"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response data
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Login checks the credentials against the stored bcrypt hash
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request. Username and password are required.")
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if !database.IsNotFound(err) {
			h.log.Error("login lookup failed", "username", req.Username, "err", err)
			fail(c, http.StatusInternalServerError, "Failed to authenticate")
			return
		}
		fail(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		h.log.Info("login rejected", "username", req.Username)
		fail(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.tokens.GenerateToken(auth.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		RestaurantID: user.RestaurantID,
		Role:         string(user.Role),
	})
	if err != nil {
		h.log.Error("token generation failed", "userId", user.ID, "err", err)
		fail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respond(c, http.StatusOK, "Login successful", LoginResponse{Token: token, User: toUserResponse(user)})
}

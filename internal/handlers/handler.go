package handlers

import (
	"log/slog"
	"time"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/middleware"
	"restaurant-pos-api/internal/protocol"
	"restaurant-pos-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RealtimeStats is the part of the hub the stats endpoint reads.
type RealtimeStats interface {
	Stats() realtime.Stats
	RoomLen(restaurantID string) int
}

// Handler serves the REST producers. Every mutation is persisted first and
// then pushed into the owning restaurant's room.
type Handler struct {
	db     *gorm.DB
	events realtime.Emitter
	stats  RealtimeStats
	tokens *auth.Manager
	log    *slog.Logger
	now    func() time.Time
}

func New(db *gorm.DB, events realtime.Emitter, stats RealtimeStats, tokens *auth.Manager, log *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		events: events,
		stats:  stats,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// emit pushes p to the room. The data change already happened, so a failed
// push is logged and never turned into an HTTP error.
func (h *Handler) emit(restaurantID string, p protocol.Payload) {
	if h.events == nil {
		return
	}
	if err := h.events.Emit(restaurantID, p); err != nil {
		h.log.Error("realtime emit failed", "restaurantId", restaurantID, "event", p.Event(), "err", err)
	}
}

type principal struct {
	UserID       string
	Username     string
	RestaurantID string
	Role         string
}

func principalFrom(c *gin.Context) principal {
	return principal{
		UserID:       c.GetString(middleware.CtxUserID),
		Username:     c.GetString(middleware.CtxUsername),
		RestaurantID: c.GetString(middleware.CtxRestaurantID),
		Role:         c.GetString(middleware.CtxRole),
	}
}

func (p principal) actor() string {
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

package handlers

import (
	"log/slog"
	"net/http"

	"restaurant-pos-api/internal/middleware"
	"restaurant-pos-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocketHandler upgrades the connection and hands it to the hub.
// It requires JWT middleware to have set "user_id" in context; the client
// then picks its room with a join-restaurant event.
func WebSocketHandler(hub *realtime.Hub, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.CtxUserID)
		if userID == "" {
			fail(c, http.StatusUnauthorized, "User not authorized")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "userId", userID, "err", err)
			return
		}

		realtime.NewWSConn(conn, userID, hub, log).Serve()
	}
}

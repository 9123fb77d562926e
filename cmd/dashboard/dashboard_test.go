package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/notifications"
	"restaurant-pos-api/internal/routes"
	"restaurant-pos-api/internal/testutil"
	"restaurant-pos-api/internal/wsclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_url: https://pos.example.com/\nusername: chef\npassword: secret\npriority_policy: priority\ntoast_duration: 2s\n"), 0o600))
	t.Setenv("DASHBOARD_RESTAURANT_ID", "rest-9")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "rest-9", cfg.RestaurantID)
	require.Equal(t, "priority", cfg.PriorityPolicy)
	require.Equal(t, 2*time.Second, cfg.ToastDuration)
	require.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.Equal(t, 5, cfg.MaxReconnectAttempts)

	ws, err := cfg.WebSocketURL()
	require.NoError(t, err)
	require.Equal(t, "wss://pos.example.com/ws", ws)
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("DASHBOARD_TOKEN", "tok")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8008", cfg.ServerURL)
	require.Equal(t, string(notifications.PolicyRecentFirst), cfg.PriorityPolicy)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"no credentials": {},
		"bad policy":     {"DASHBOARD_TOKEN": "tok", "DASHBOARD_PRIORITY_POLICY": "loudest"},
	} {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			require.Error(t, err)
		})
	}
}

func TestRender(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := notifications.NewStore(notifications.Options{Now: func() time.Time { return now }})
	store.Load([]notifications.Notification{
		{ID: "a", Type: "inventory", Title: "Out of Basil", Priority: models.PriorityUrgent, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b", Type: "order", Title: "New Order", Priority: models.PriorityHigh, Read: true, CreatedAt: now.Add(-5 * time.Minute)},
	})
	store.Add(notifications.Notification{ID: "c", Type: "kitchen", Title: "Order ready", Priority: models.PriorityMedium, CreatedAt: now})

	var out bytes.Buffer
	render(&out, "rest-1", wsclient.StateConnected, store, now)
	text := out.String()

	require.Contains(t, text, "rest-1")
	require.Contains(t, text, "unread: 2")
	require.Contains(t, text, "Out of Basil")
	require.Contains(t, text, "2h ago")
	require.Contains(t, text, "5m ago")
	require.Less(t, strings.Index(text, "Order ready"), strings.Index(text, "Out of Basil"))
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, testutil.DiscardLogger()))

	srv := httptest.NewServer(routes.SetupRoutes(routes.Deps{
		DB:     db,
		Tokens: auth.NewManager("test-secret", "restaurant-pos-api", "restaurant-pos-clients", time.Hour),
		Log:    testutil.DiscardLogger(),
	}))
	defer srv.Close()

	session, err := login(context.Background(), srv.Client(), srv.URL, "chef", database.DemoPassword)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "rest-1", session.User.RestaurantID)

	_, err = login(context.Background(), srv.Client(), srv.URL, "chef", "wrong")
	require.ErrorContains(t, err, "login rejected")
}

func TestReadCommands(t *testing.T) {
	now := time.Now()
	store := notifications.NewStore(notifications.Options{})
	store.Load([]notifications.Notification{
		{ID: "a", Priority: models.PriorityHigh, CreatedAt: now},
		{ID: "b", Priority: models.PriorityLow, CreatedAt: now},
	})
	quit := 0

	readCommands(strings.NewReader("r 2\nr 9\nbogus\n"), store, func() { quit++ })
	require.Equal(t, 1, store.UnreadCount())
	require.Equal(t, 1, quit, "EOF quits")

	readCommands(strings.NewReader("a\nq\nr 1\n"), store, func() { quit++ })
	require.Zero(t, store.UnreadCount())
	require.Equal(t, 2, quit)
}

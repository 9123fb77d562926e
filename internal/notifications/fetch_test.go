package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/routes"
	"restaurant-pos-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestFetch_SeedsStoreInServerOrder(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	req.NoError(err)
	req.NoError(database.Seed(db, testutil.DiscardLogger()))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	req.NoError(db.Create([]models.Notification{
		{ID: "low", RestaurantID: "rest-1", Type: models.NotificationSystem, Title: "Low", Priority: models.PriorityLow, CreatedAt: base.Add(time.Hour)},
		{ID: "urgent", RestaurantID: "rest-1", Type: models.NotificationInventory, Title: "Out", Priority: models.PriorityUrgent, CreatedAt: base},
		{ID: "high", RestaurantID: "rest-1", Type: models.NotificationOrder, Title: "Order", Priority: models.PriorityHigh, Read: true, CreatedAt: base},
		{ID: "elsewhere", RestaurantID: "rest-2", Type: models.NotificationOrder, Title: "Other", Priority: models.PriorityUrgent, CreatedAt: base},
	}).Error)

	tokens := auth.NewManager("test-secret", "restaurant-pos-api", "restaurant-pos-clients", time.Hour)
	srv := httptest.NewServer(routes.SetupRoutes(routes.Deps{DB: db, Tokens: tokens, Log: testutil.DiscardLogger()}))
	defer srv.Close()

	token, err := tokens.GenerateToken(auth.Identity{UserID: "u-1", Username: "manager", RestaurantID: "rest-1", Role: "manager"})
	req.NoError(err)

	list, err := Fetch(context.Background(), srv.Client(), srv.URL, token)
	req.NoError(err)
	req.Equal([]string{"urgent", "high", "low"}, ids(list))

	store := NewStore(Options{})
	store.Load(list)
	req.Equal(2, store.UnreadCount())

	_, err = Fetch(context.Background(), srv.Client(), srv.URL, "bad-token")
	req.ErrorContains(err, "401")
}

func TestFetch_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Fetch(context.Background(), nil, url, "token")
	require.Error(t, err)
}

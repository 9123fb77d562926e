package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/database"
	"restaurant-pos-api/internal/realtime"
	"restaurant-pos-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, hub *realtime.Hub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, testutil.DiscardLogger()))

	return SetupRoutes(Deps{
		DB:     db,
		Tokens: auth.NewManager("test-secret", "restaurant-pos-api", "restaurant-pos-clients", time.Hour),
		Log:    testutil.DiscardLogger(),
		Hub:    hub,
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/orders", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoginThenProtectedRoute(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	body := `{"username":"manager","password":"` + database.DemoPassword + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"token"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketRouteOnlyWithHub(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	hub := realtime.NewHub(testutil.DiscardLogger(), realtime.NewRegistry(time.Minute, nil))
	w = httptest.NewRecorder()
	newTestRouter(t, hub).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

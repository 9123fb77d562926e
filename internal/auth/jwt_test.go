package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("test-secret", "restaurant-pos-api", "restaurant-pos-clients", time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager()
	token, err := m.GenerateToken(Identity{UserID: "u-1", Username: "alice", RestaurantID: "rest-1", Role: "waiter"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "rest-1", claims.RestaurantID)
	require.Equal(t, "waiter", claims.Role)

	userID, err := m.UserID(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", userID)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := newTestManager().ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	other := NewManager("test-secret", "restaurant-pos-api", "someone-else", time.Hour)
	token, err := other.GenerateToken(Identity{UserID: "u-1"})
	require.NoError(t, err)

	_, err = newTestManager().ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidAudience)
}

func TestValidateToken_Expired(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.GenerateToken(Identity{UserID: "u-1"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	require.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, CheckPassword(hash, "s3cret"))
	require.ErrorIs(t, CheckPassword(hash, "nope"), ErrInvalidCredentials)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	req.NoError(err)
	req.False(loaded)
	req.Equal(8008, cfg.Port)
	req.Equal(":8008", cfg.Addr())
	req.Equal(90*time.Second, cfg.StaleConnectionAfter)
	req.Equal(time.Minute, cfg.SweepInterval)
	req.True(cfg.EnablePollingTransport)
	req.Equal("restaurant-pos-api", cfg.JWTIssuer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STALE_CONNECTION_AFTER", "2m")
	t.Setenv("ENABLE_POLLING_TRANSPORT", "false")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 2*time.Minute, cfg.StaleConnectionAfter)
	require.False(t, cfg.EnablePollingTransport)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LOG_LEVEL") })

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

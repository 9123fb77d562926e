package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port         int    `envconfig:"PORT" default:"8008"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"restaurant-pos.db"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret   string        `envconfig:"JWT_SECRET" default:"development-insecure-secret-change-me"`
	JWTIssuer   string        `envconfig:"JWT_ISSUER" default:"restaurant-pos-api"`
	JWTAudience string        `envconfig:"JWT_AUDIENCE" default:"restaurant-pos-clients"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// A connection without a ping for this long is dropped by the sweeper.
	StaleConnectionAfter time.Duration `envconfig:"STALE_CONNECTION_AFTER" default:"90s"`
	SweepInterval        time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`

	// Serves the socket.io fallback at /socket.io/ next to the raw websocket.
	EnablePollingTransport bool `envconfig:"ENABLE_POLLING_TRANSPORT" default:"true"`
	SeedDemoData           bool `envconfig:"SEED_DEMO_DATA" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file, then the process environment.
// It reports whether a .env file was applied.
func Load(files ...string) (Config, bool, error) {
	loaded := true
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, false, fmt.Errorf("load env file: %w", err)
		}
		loaded = false
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, loaded, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, loaded, err
	}
	return cfg, loaded, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT %d out of range", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("config error: JWT_SECRET must not be empty")
	}
	if c.StaleConnectionAfter <= 0 || c.SweepInterval <= 0 {
		return errors.New("config error: STALE_CONNECTION_AFTER and SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"restaurant-pos-api/internal/notifications"

	"github.com/spf13/viper"
)

// Config holds the dashboard settings. Every key can also come from a
// DASHBOARD_<KEY> environment variable.
type Config struct {
	ServerURL            string        `mapstructure:"server_url"`
	RestaurantID         string        `mapstructure:"restaurant_id"`
	Token                string        `mapstructure:"token"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	AckTimeout           time.Duration `mapstructure:"ack_timeout"`
	PriorityPolicy       string        `mapstructure:"priority_policy"`
	DisplayLimit         int           `mapstructure:"display_limit"`
	ToastDuration        time.Duration `mapstructure:"toast_duration"`
	LogLevel             string        `mapstructure:"log_level"`
}

// LoadConfig reads the optional YAML file at path, then the environment.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://localhost:8008")
	v.SetDefault("restaurant_id", "")
	v.SetDefault("token", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("max_reconnect_attempts", 5)
	v.SetDefault("ack_timeout", 10*time.Second)
	v.SetDefault("priority_policy", string(notifications.PolicyRecentFirst))
	v.SetDefault("display_limit", notifications.DefaultDisplayLimit)
	v.SetDefault("toast_duration", notifications.DefaultToastDuration)
	v.SetDefault("log_level", "warn")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := url.ParseRequestURI(c.ServerURL); err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	switch notifications.Policy(c.PriorityPolicy) {
	case notifications.PolicyRecentFirst, notifications.PolicyPriority:
	default:
		return fmt.Errorf("priority_policy must be %q or %q, got %q",
			notifications.PolicyRecentFirst, notifications.PolicyPriority, c.PriorityPolicy)
	}
	if c.Token == "" && (c.Username == "" || c.Password == "") {
		return errors.New("either token or username and password are required")
	}
	return nil
}

// WebSocketURL turns the REST base URL into the hub's /ws endpoint.
func (c Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

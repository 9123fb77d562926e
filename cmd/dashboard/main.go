package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"restaurant-pos-api/internal/logging"
	"restaurant-pos-api/internal/notifications"
	"restaurant-pos-api/internal/wsclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "dashboard.yaml", "Path to the dashboard YAML config")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.ConnectTimeout}
	token, restaurantID := cfg.Token, cfg.RestaurantID
	if token == "" {
		session, err := login(ctx, client, cfg.ServerURL, cfg.Username, cfg.Password)
		if err != nil {
			return err
		}
		token = session.Token
		if restaurantID == "" {
			restaurantID = session.User.RestaurantID
		}
	}

	store := notifications.NewStore(notifications.Options{
		Policy:        notifications.Policy(cfg.PriorityPolicy),
		DisplayLimit:  cfg.DisplayLimit,
		ToastDuration: cfg.ToastDuration,
	})
	initial, err := notifications.Fetch(ctx, client, cfg.ServerURL, token)
	if err != nil {
		log.Warn("could not load notifications, starting empty", "err", err)
	}
	store.Load(initial)

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	manager := wsclient.New(wsclient.Config{
		URL:                  wsURL,
		ConnectTimeout:       cfg.ConnectTimeout,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		AckTimeout:           cfg.AckTimeout,
		Logger:               log,
	})
	defer manager.Disconnect()

	screen := &screen{out: os.Stdout, restaurantID: restaurantID, store: store, manager: manager}
	store.OnChange(screen.redraw)
	manager.OnStateChange(func(wsclient.State) { screen.redraw() })
	detach := notifications.Attach(manager, store, log)
	defer detach()

	if err := manager.Connect(ctx, restaurantID, token); err != nil {
		log.Error("initial connect failed, retrying in background", "err", err)
	}
	screen.redraw()

	go readCommands(os.Stdin, store, stop)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout, "bye")
			return nil
		case <-ticker.C:
			store.ExpireToasts()
		}
	}
}

type screen struct {
	mu           sync.Mutex
	out          io.Writer
	restaurantID string
	store        *notifications.Store
	manager      *wsclient.Manager
}

func (s *screen) redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, "\033[H\033[2J")
	render(s.out, s.restaurantID, s.manager.State(), s.store, time.Now())
	fmt.Fprintln(s.out, "commands: r <#> mark read | a mark all read | c close toasts | q quit")
}

// readCommands applies keyboard commands to the store until q or EOF.
func readCommands(in io.Reader, store *notifications.Store, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "q":
			quit()
			return
		case "a":
			store.MarkAllAsRead()
		case "c":
			for _, t := range store.Toasts() {
				store.CloseToast(t.ID)
			}
		case "r":
			if len(fields) < 2 {
				continue
			}
			i, err := strconv.Atoi(fields[1])
			visible := store.Visible()
			if err != nil || i < 1 || i > len(visible) {
				continue
			}
			store.MarkAsRead(visible[i-1].ID)
		}
	}
	quit()
}

type loginSession struct {
	Token string `json:"token"`
	User  struct {
		Username     string `json:"username"`
		RestaurantID string `json:"restaurantId"`
		Role         string `json:"role"`
	} `json:"user"`
}

func login(ctx context.Context, client *http.Client, baseURL, username, password string) (loginSession, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return loginSession{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/login", bytes.NewReader(body))
	if err != nil {
		return loginSession{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return loginSession{}, fmt.Errorf("login: %w", err)
	}
	defer res.Body.Close()

	var envelope struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Data    loginSession `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return loginSession{}, fmt.Errorf("decode login response (status %d): %w", res.StatusCode, err)
	}
	if !envelope.Success {
		return loginSession{}, fmt.Errorf("login rejected: %s", envelope.Message)
	}
	return envelope.Data, nil
}

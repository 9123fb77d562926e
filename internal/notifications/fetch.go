package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type fetchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Notifications []Notification `json:"notifications"`
		UnreadCount   int            `json:"unreadCount"`
	} `json:"data"`
}

// Fetch reads the restaurant's notifications from the REST API, in the order
// the server sorted them.
func Fetch(ctx context.Context, client *http.Client, baseURL, token string) ([]Notification, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/notifications", nil)
	if err != nil {
		return nil, fmt.Errorf("build notifications request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}
	defer res.Body.Close()

	var body fetchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode notifications (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("fetch notifications: %d %s", res.StatusCode, body.Message)
	}
	return body.Data.Notifications, nil
}

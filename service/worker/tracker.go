package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPTracker reports opens to the site's track endpoint. Failures are
// local: callers log them and move on, the user's navigation is never
// held up.
type HTTPTracker struct {
	endpoint string
	client   *http.Client
}

func NewHTTPTracker(endpoint string) *HTTPTracker {
	return &HTTPTracker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type trackOpenRequest struct {
	NotificationID string `json:"notificationId"`
	SubscriptionID string `json:"subscriptionId"`
}

type trackOpenResponse struct {
	Success bool `json:"success"`
}

func (t *HTTPTracker) TrackOpen(ctx context.Context, notificationID, subscriptionID string) error {
	body, err := json.Marshal(trackOpenRequest{
		NotificationID: notificationID,
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal track request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build track request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call track endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("track endpoint returned status %d", resp.StatusCode)
	}

	var tracked trackOpenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tracked); err != nil {
		return fmt.Errorf("failed to parse track response: %w", err)
	}
	if !tracked.Success {
		return fmt.Errorf("track endpoint reported failure")
	}

	return nil
}

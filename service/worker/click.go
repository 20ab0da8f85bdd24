package worker

import (
	"context"
	"log/slog"
	"sync"

	"herald/service/notification"
)

// Navigator opens or focuses a browsing context at the given URL.
type Navigator interface {
	OpenWindow(ctx context.Context, url string) error
}

// OpenTracker records that a delivered notification was opened.
type OpenTracker interface {
	TrackOpen(ctx context.Context, notificationID, subscriptionID string) error
}

// ClickEvent is the platform's notification-click callback, carrying the
// data payload attached at display time.
type ClickEvent struct {
	Action  string
	Dismiss func()
	Data    notification.PayloadData
}

// Correlator handles notification clicks. It dismisses the notification,
// navigates, and reports the open when both correlation identifiers
// survived the round trip.
type Correlator struct {
	navigator Navigator
	tracker   OpenTracker
	logger    *slog.Logger
}

func NewCorrelator(navigator Navigator, tracker OpenTracker, logger *slog.Logger) *Correlator {
	return &Correlator{
		navigator: navigator,
		tracker:   tracker,
		logger:    logger,
	}
}

// HandleClick processes one click event. The notification is dismissed
// first; a stuck notification is a worse failure mode than a missed
// tracking call. Navigation and tracking then run as two independent
// tasks: neither gates the other, and both have settled by the time
// HandleClick returns. Tracking fires only when both identifiers are
// present; their absence is an expected state, not an error.
func (c *Correlator) HandleClick(ctx context.Context, event ClickEvent) {
	if event.Dismiss != nil {
		event.Dismiss()
	}

	if event.Action == notification.ActionClose {
		return
	}

	url := event.Data.URL
	if url == "" {
		url = notification.DefaultURL
	}
	notificationID := event.Data.NotificationID.String()
	subscriptionID := event.Data.SubscriptionID.String()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.navigator.OpenWindow(ctx, url); err != nil {
			c.logger.Error("Failed to open window", "url", url, "error", err)
		}
	}()

	if notificationID != "" && subscriptionID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.tracker.TrackOpen(ctx, notificationID, subscriptionID); err != nil {
				c.logger.Error("Failed to track notification open", "notificationId", notificationID, "subscriptionId", subscriptionID, "error", err)
			}
		}()
	}

	wg.Wait()
}

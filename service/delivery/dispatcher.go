package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"herald/service/notification"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender pushes one payload to one subscription. Satisfied by the webpush
// sender below; tests substitute their own.
type Sender interface {
	Send(ctx context.Context, sub *notification.Subscription, payload []byte) error
}

// Dispatcher fans a notification out to every stored subscription,
// recording one delivery-log row per target. Log writes are best-effort:
// a failed insert never fails the send.
type Dispatcher struct {
	store  *notification.Store
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(store *notification.Store, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// Result summarizes one broadcast.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Pruned int `json:"pruned"`
}

// Broadcast delivers n to all subscriptions. Each target gets a payload
// carrying both correlation identifiers so a later click can be traced
// back to this exact delivery. Dead subscriptions are pruned as they are
// discovered.
func (d *Dispatcher) Broadcast(ctx context.Context, n notification.Notification) (Result, error) {
	subs, err := d.store.GetSubscriptions()
	if err != nil {
		return Result{}, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if len(subs) == 0 {
		d.logger.Warn("No subscriptions registered, dropping notification", "notification", n.ID)
		return Result{}, nil
	}

	var result Result
	for i := range subs {
		sub := &subs[i]

		payload, err := notification.WirePayload(n, sub.ID)
		if err != nil {
			return result, fmt.Errorf("failed to marshal payload: %w", err)
		}

		status := notification.DeliveryStatusSent
		statusCode := http.StatusCreated

		if err := d.sendWithRetry(ctx, sub, payload); err != nil {
			status = notification.DeliveryStatusFailed
			statusCode = statusCodeOf(err)
			result.Failed++

			if IsGone(err) {
				d.logger.Info("Pruning dead subscription", "subscriptionID", sub.ID, "error", err)
				if pruneErr := d.store.DeleteSubscription(sub.ID); pruneErr != nil {
					d.logger.Warn("Failed to prune subscription", "subscriptionID", sub.ID, "error", pruneErr)
				} else {
					result.Pruned++
				}
			}
		} else {
			result.Sent++
		}

		if err := d.store.LogDelivery(notification.DeliveryRecord{
			NotificationID: n.ID,
			SubscriptionID: sub.ID,
			Status:         status,
			StatusCode:     statusCode,
		}); err != nil {
			d.logger.Warn("Failed to record delivery", "notification", n.ID, "subscriptionID", sub.ID, "error", err)
		}
	}

	return result, nil
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, sub *notification.Subscription, payload []byte) error {
	const maxRetries = 3
	baseDelay := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := d.sender.Send(ctx, sub, payload)
		if err == nil {
			if attempt > 0 {
				d.logger.Info("Notification sent after retry", "subscriptionID", sub.ID, "attempt", attempt+1)
			}
			return nil
		}

		lastErr = err

		if IsPermanent(err) || IsGone(err) {
			d.logger.Error("Permanent error, not retrying", "subscriptionID", sub.ID, "error", err)
			return err
		}

		if attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			d.logger.Warn("Failed to send notification, retrying", "subscriptionID", sub.ID, "attempt", attempt+1, "error", err, "retryIn", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	d.logger.Error("Failed to send notification after retries", "subscriptionID", sub.ID, "attempts", maxRetries, "error", lastErr)
	return lastErr
}

type statusCoder interface {
	StatusCode() int
}

func statusCodeOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// WebPushSender delivers payloads through the Web Push protocol with VAPID
// authentication.
type WebPushSender struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
}

func NewWebPushSender(vapidPublicKey, vapidPrivateKey, subscriber string) *WebPushSender {
	return &WebPushSender{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub *notification.Subscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("failed to send webpush: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return &GoneError{Err: &httpStatusError{code: resp.StatusCode}}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return NewPermanentError(&httpStatusError{code: resp.StatusCode})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &httpStatusError{code: resp.StatusCode}
	}

	return nil
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("push service returned status %d", e.code)
}

func (e *httpStatusError) StatusCode() int {
	return e.code
}

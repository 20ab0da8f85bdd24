package worker

import (
	"context"
	"log/slog"
	"time"

	"herald/service/notification"
)

// Displayer is the host platform's notification surface.
type Displayer interface {
	Show(ctx context.Context, payload notification.Payload) error
}

// Receiver turns raw push messages into displayed notifications. Parsing
// never fails: missing payloads get full defaults and unparseable ones
// become the title of an otherwise-default notification.
type Receiver struct {
	displayer Displayer
	logger    *slog.Logger
	now       func() time.Time
}

func NewReceiver(displayer Displayer, logger *slog.Logger) *Receiver {
	return &Receiver{
		displayer: displayer,
		logger:    logger,
		now:       time.Now,
	}
}

// HandlePush processes one push event. It returns only after the display
// request has settled; returning earlier would let the host tear the
// worker down before the notification is shown. Display failure is
// logged, not retried.
func (r *Receiver) HandlePush(ctx context.Context, raw []byte) notification.Payload {
	payload := notification.ParsePayload(raw, r.now())

	if err := r.displayer.Show(ctx, payload); err != nil {
		r.logger.Error("Failed to display notification", "tag", payload.Tag, "error", err)
	}

	return payload
}

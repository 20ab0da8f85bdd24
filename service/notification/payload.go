package notification

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Defaults applied to partial or malformed push payloads. Every field of
// the displayed notification must end up populated no matter what arrives.
const (
	DefaultTitle = "Department of Computer Science"
	DefaultBody  = "You have a new announcement."
	DefaultIcon  = "/images/icons/icon-192x192.png"
	DefaultBadge = "/images/icons/badge-72x72.png"
	DefaultURL   = "/"
)

// ActionClose is the action identifier that dismisses without navigating.
const ActionClose = "close"

var defaultVibration = []int{100, 50, 100}

type PayloadAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type PayloadData struct {
	URL              string `json:"url"`
	ArrivalTimestamp int64  `json:"dateOfArrival"`
	NotificationID   ID     `json:"notificationId,omitempty"`
	SubscriptionID   ID     `json:"subscriptionId,omitempty"`
}

// Payload is the fully-defaulted notification descriptor handed to the
// display platform. It is transient: built per push event, never stored.
type Payload struct {
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge"`
	Tag                string          `json:"tag"`
	RequireInteraction bool            `json:"requireInteraction"`
	Vibrate            []int           `json:"vibrate"`
	Actions            []PayloadAction `json:"actions"`
	Data               PayloadData     `json:"data"`
}

// wirePayload is the untrusted JSON shape a push gateway delivers. All
// fields optional; url and primaryKey ride at the top level.
type wirePayload struct {
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge"`
	Tag                string          `json:"tag"`
	RequireInteraction *bool           `json:"requireInteraction"`
	Vibrate            []int           `json:"vibrate"`
	Actions            []PayloadAction `json:"actions"`
	URL                string          `json:"url"`
	PrimaryKey         ID              `json:"primaryKey"`
	SubscriptionID     ID              `json:"subscriptionId"`
}

// ParsePayload turns raw push bytes into a complete Payload. An empty
// payload yields pure defaults; bytes that fail JSON parsing become the
// title of an otherwise-default notification. It never fails.
func ParsePayload(raw []byte, now time.Time) Payload {
	p := defaultPayload(now)

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return p
	}

	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		p.Title = trimmed
		return p
	}

	if wire.Title != "" {
		p.Title = wire.Title
	}
	if wire.Body != "" {
		p.Body = wire.Body
	}
	if wire.Icon != "" {
		p.Icon = wire.Icon
	}
	if wire.Badge != "" {
		p.Badge = wire.Badge
	}
	if wire.Tag != "" {
		p.Tag = wire.Tag
	}
	if wire.RequireInteraction != nil {
		p.RequireInteraction = *wire.RequireInteraction
	}
	if len(wire.Vibrate) > 0 {
		p.Vibrate = wire.Vibrate
	}
	if len(wire.Actions) > 0 {
		p.Actions = wire.Actions
	}
	if wire.URL != "" {
		p.Data.URL = wire.URL
	}
	p.Data.NotificationID = wire.PrimaryKey
	p.Data.SubscriptionID = wire.SubscriptionID

	return p
}

func defaultPayload(now time.Time) Payload {
	return Payload{
		Title:              DefaultTitle,
		Body:               DefaultBody,
		Icon:               DefaultIcon,
		Badge:              DefaultBadge,
		Tag:                fmt.Sprintf("notification-%d", now.UnixMilli()),
		RequireInteraction: false,
		Vibrate:            append([]int(nil), defaultVibration...),
		Actions: []PayloadAction{
			{Action: "open", Title: "View"},
			{Action: ActionClose, Title: "Dismiss"},
		},
		Data: PayloadData{
			URL:              DefaultURL,
			ArrivalTimestamp: now.UnixMilli(),
		},
	}
}

// WirePayload builds the gateway-bound JSON for one (notification,
// subscription) target, threading both correlation identifiers so a click
// can be traced back to this exact delivery.
func WirePayload(n Notification, subscriptionID string) ([]byte, error) {
	wire := wirePayload{
		Title:          n.Title,
		Body:           n.Body,
		Icon:           n.Icon,
		Badge:          n.Badge,
		Tag:            n.Tag,
		URL:            n.URL,
		PrimaryKey:     ID(n.ID),
		SubscriptionID: ID(subscriptionID),
	}
	if n.RequireInteraction {
		wire.RequireInteraction = &n.RequireInteraction
	}
	return json.Marshal(wire)
}

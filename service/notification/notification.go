package notification

import (
	"bytes"
	"encoding/json"
	"time"
)

// Notification is a persisted announcement push, identified by a ULID.
type Notification struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Icon               string    `json:"icon,omitempty"`
	Badge              string    `json:"badge,omitempty"`
	Tag                string    `json:"tag,omitempty"`
	URL                string    `json:"url"`
	RequireInteraction bool      `json:"requireInteraction"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Subscription is a browser push subscription registered by a visitor.
type Subscription struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeliveryRecord is one row of the delivery log: a single (notification,
// subscription) send attempt and, once tracked, its open time.
type DeliveryRecord struct {
	ID             int64      `json:"id"`
	NotificationID string     `json:"notificationId"`
	SubscriptionID string     `json:"subscriptionId"`
	Status         string     `json:"status"`
	StatusCode     int        `json:"statusCode,omitempty"`
	SentAt         time.Time  `json:"sentAt"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
}

const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// ID accepts JSON strings and numbers interchangeably; push gateways and
// admin clients are not consistent about identifier types.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// IDStrings converts a decoded identifier list, dropping empties.
func IDStrings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out
}

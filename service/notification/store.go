package notification

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys(1): enable FK constraints (disabled by default in SQLite)
	// _busy_timeout=5000: wait up to 5s when DB is locked (default=0, fails immediately)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL UNIQUE,
			p256dh TEXT NOT NULL,
			auth TEXT NOT NULL,
			createdAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			icon TEXT,
			badge TEXT,
			tag TEXT,
			url TEXT NOT NULL DEFAULT '/',
			requireInteraction INTEGER NOT NULL DEFAULT 0,
			createdAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notification_delivery_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			notification_id TEXT NOT NULL,
			subscription_id TEXT NOT NULL,
			status TEXT NOT NULL,
			statusCode INTEGER,
			sentAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			openedAt TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_log_notification ON notification_delivery_log(notification_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) AddSubscription(sub Subscription) error {
	query := `INSERT INTO subscriptions (id, endpoint, p256dh, auth) VALUES (?, ?, ?, ?)
			  ON CONFLICT(endpoint) DO UPDATE SET p256dh=excluded.p256dh, auth=excluded.auth`
	_, err := s.db.Exec(query, sub.ID, sub.Endpoint, sub.P256dh, sub.Auth)
	return err
}

func (s *Store) GetSubscriptions() ([]Subscription, error) {
	rows, err := s.db.Query(`SELECT id, endpoint, p256dh, auth, createdAt FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subscriptions []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, sub)
	}

	return subscriptions, rows.Err()
}

func (s *Store) GetSubscription(id string) (*Subscription, error) {
	row := s.db.QueryRow(`SELECT id, endpoint, p256dh, auth, createdAt FROM subscriptions WHERE id = ?`, id)

	var sub Subscription
	err := row.Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) DeleteSubscription(id string) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteSubscriptionByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

func (s *Store) CountSubscriptions() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscriptions`).Scan(&count)
	return count, err
}

func (s *Store) AddNotification(n Notification) error {
	query := `INSERT INTO notifications (id, title, body, icon, badge, tag, url, requireInteraction)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, n.ID, n.Title, n.Body, n.Icon, n.Badge, n.Tag, n.URL, boolToInt(n.RequireInteraction))
	return err
}

func (s *Store) GetNotifications(limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, title, body, COALESCE(icon,''), COALESCE(badge,''), COALESCE(tag,''), url, requireInteraction, createdAt
		FROM notifications ORDER BY createdAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var ri int
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Icon, &n.Badge, &n.Tag, &n.URL, &ri, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.RequireInteraction = ri != 0
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (s *Store) CountNotifications() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&count)
	return count, err
}

// DeleteNotifications removes the notification rows matching ids and
// returns how many were deleted.
func (s *Store) DeleteNotifications(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM notifications WHERE id IN (%s)`, placeholders(len(ids)))
	res, err := s.db.Exec(query, toArgs(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteDeliveryLogs removes every delivery-log row referencing any of the
// given notification ids.
func (s *Store) DeleteDeliveryLogs(notificationIDs []string) (int64, error) {
	if len(notificationIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM notification_delivery_log WHERE notification_id IN (%s)`, placeholders(len(notificationIDs)))
	res, err := s.db.Exec(query, toArgs(notificationIDs)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) LogDelivery(rec DeliveryRecord) error {
	query := `INSERT INTO notification_delivery_log (notification_id, subscription_id, status, statusCode)
			  VALUES (?, ?, ?, ?)`
	_, err := s.db.Exec(query, rec.NotificationID, rec.SubscriptionID, rec.Status, rec.StatusCode)
	return err
}

// MarkOpened stamps the open time on the delivery row for the given pair.
// Returns false when no matching row exists.
func (s *Store) MarkOpened(notificationID, subscriptionID string, openedAt time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE notification_delivery_log SET openedAt = ?
		WHERE notification_id = ? AND subscription_id = ? AND openedAt IS NULL`,
		openedAt, notificationID, subscriptionID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) GetDeliveries(notificationID string) ([]DeliveryRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, notification_id, subscription_id, status, COALESCE(statusCode, 0), sentAt, openedAt
		FROM notification_delivery_log WHERE notification_id = ? ORDER BY id`, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		var opened sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.NotificationID, &rec.SubscriptionID, &rec.Status, &rec.StatusCode, &rec.SentAt, &opened); err != nil {
			return nil, err
		}
		if opened.Valid {
			rec.OpenedAt = &opened.Time
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"herald/service/auth"
	"herald/service/config"
	"herald/service/notification"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-admin-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	curriculumPath := filepath.Join(dir, "curriculum.json")
	require.NoError(t, os.WriteFile(curriculumPath, []byte(`{
		"updatedAt": "2026-01-15",
		"programs": [
			{"name": "Computer Science", "degree": "BSc", "courses": [
				{"code": "CS101", "title": "Intro to Programming", "credits": 6, "semester": 1}
			]}
		]
	}`), 0644))

	cfg := &config.Config{
		Port:            0,
		AdminSecret:     testSecret,
		RateLimit:       1000,
		SiteDir:         dir,
		OfflinePage:     "/offline.html",
		CacheVersion:    "test",
		BypassPaths:     []string{"/api/", "/track-open", "/healthz"},
		CurriculumPath:  curriculumPath,
		PublicURL:       "http://localhost:8080",
		FrontendOrigin:  "*",
		VAPIDSubscriber: "mailto:webmaster@cs.example.edu",
		TrackEndpoint:   "/track-open",
		StoragePath:     filepath.Join(dir, "herald.db"),
	}

	srv, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.store.Close() })
	return srv
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := &auth.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func seedNotifications(t *testing.T, store *notification.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.AddNotification(notification.Notification{ID: id, Title: "t", Body: "b", URL: "/"}))
	}
}

func deliveryFor(notificationID string) notification.DeliveryRecord {
	return notification.DeliveryRecord{
		NotificationID: notificationID,
		SubscriptionID: "s1",
		Status:         notification.DeliveryStatusSent,
	}
}

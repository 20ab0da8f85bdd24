package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteNotifications_RequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)
	seedNotifications(t, srv.store, "1", "2")

	rr := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", "", map[string]any{"ids": []any{"1", "2"}})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	count, err := srv.store.CountNotifications()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteNotifications_CookieOnlyIsRejected(t *testing.T) {
	srv := newTestServer(t)

	req := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", "", map[string]any{"ids": []any{"1"}})
	assert.Equal(t, http.StatusUnauthorized, req.Code)
	body := decodeBody(t, req)
	assert.Equal(t, false, body["success"])
}

func TestDeleteNotifications_EmptyIDsIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	seedNotifications(t, srv.store, "1")
	token := adminToken(t)

	for _, payload := range []map[string]any{
		{"ids": []any{}},
		{},
	} {
		rr := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", token, payload)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, false, decodeBody(t, rr)["success"])
	}

	count, err := srv.store.CountNotifications()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteNotifications_DeletesRecordsAndLogs(t *testing.T) {
	srv := newTestServer(t)
	seedNotifications(t, srv.store, "1", "2", "3")
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, srv.store.LogDelivery(deliveryFor(id)))
	}

	rr := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", adminToken(t), map[string]any{"ids": []any{1, 2, 3}})

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["deletedCount"])
	assert.NotEmpty(t, body["message"])

	count, err := srv.store.CountNotifications()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	records, err := srv.store.GetDeliveries("1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteNotifications_LogCleanupFailureStillSucceeds(t *testing.T) {
	srv := newTestServer(t)
	seedNotifications(t, srv.store, "1", "2", "3")

	_, err := srv.store.GetDB().Exec(`DROP TABLE notification_delivery_log`)
	require.NoError(t, err)

	rr := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", adminToken(t), map[string]any{"ids": []any{"1", "2", "3"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["deletedCount"])
}

func TestDeleteNotifications_PrimaryDeleteFailureIs500(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.store.GetDB().Exec(`DROP TABLE notifications`)
	require.NoError(t, err)

	rr := doJSON(t, srv, http.MethodDelete, "/api/admin/notifications", adminToken(t), map[string]any{"ids": []any{"1"}})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestDeleteNotifications_WrongVerbIs405(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPut, "/api/admin/notifications", adminToken(t), map[string]any{"ids": []any{"1"}})

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestBroadcast_ValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	token := adminToken(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/admin/broadcast", token, map[string]any{"title": "no body"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBroadcast_NoSubscribersStillStoresNotification(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/admin/broadcast", adminToken(t), map[string]any{
		"title": "Exam schedule posted",
		"body":  "Check the announcements page",
		"url":   "/announcements/42",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])

	count, err := srv.store.CountNotifications()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetStats_ReportsCounts(t *testing.T) {
	srv := newTestServer(t)
	seedNotifications(t, srv.store, "1", "2")

	rr := doJSON(t, srv, http.MethodGet, "/api/admin/stats", adminToken(t), nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, float64(2), body["notificationsCount"])
	assert.Equal(t, float64(0), body["subscriptionsCount"])
	assert.Equal(t, "static-test", body["cacheVersion"])
}

func TestSubscribeQR_ReturnsPNG(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/admin/subscribe-qr", adminToken(t), nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.NotZero(t, rr.Body.Len())
}

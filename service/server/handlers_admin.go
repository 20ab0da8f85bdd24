package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"herald/service/notification"
	"herald/service/util"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"success": false,
		"error":   fmt.Sprintf("method %s not allowed", r.Method),
	})
}

type broadcastRequest struct {
	Title              string `json:"title" validate:"required"`
	Body               string `json:"body" validate:"required"`
	URL                string `json:"url"`
	Icon               string `json:"icon"`
	Badge              string `json:"badge"`
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"requireInteraction"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	if req.URL == "" {
		req.URL = notification.DefaultURL
	}

	n := notification.Notification{
		ID:                 ulid.Make().String(),
		Title:              req.Title,
		Body:               req.Body,
		Icon:               req.Icon,
		Badge:              req.Badge,
		Tag:                req.Tag,
		URL:                req.URL,
		RequireInteraction: req.RequireInteraction,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.store.AddNotification(n); err != nil {
		s.logger.Error("Failed to store notification", "error", err)
		util.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to store notification"})
		return
	}

	result, err := s.dispatcher.Broadcast(r.Context(), n)
	if err != nil {
		s.logger.Error("Broadcast failed", "notification", n.ID, "error", err)
		util.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	s.logger.Info("Broadcast dispatched", "notification", n.ID, "sent", result.Sent, "failed", result.Failed)
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"notification": n,
		"result":       result,
	})
}

type deleteNotificationsRequest struct {
	IDs []notification.ID `json:"ids"`
}

// handleDeleteNotifications bulk-deletes notification records and then
// their delivery-log rows. The log cleanup is best-effort: once the
// primary rows are gone the operation is a success, orphaned log rows are
// an acceptable side effect.
func (s *Server) handleDeleteNotifications(w http.ResponseWriter, r *http.Request) {
	var req deleteNotificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	ids := notification.IDStrings(req.IDs)
	if len(ids) == 0 {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "ids must be a non-empty array"})
		return
	}

	deleted, err := s.store.DeleteNotifications(ids)
	if err != nil {
		s.logger.Error("Failed to delete notifications", "error", err)
		util.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	if _, err := s.store.DeleteDeliveryLogs(ids); err != nil {
		s.logger.Warn("Failed to delete delivery logs", "error", err)
	}

	util.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": deleted,
		"message":      fmt.Sprintf("Deleted %d notification(s)", deleted),
	})
}

func (s *Server) handleGetDeliveries(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notificationID")
	if notificationID == "" {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "missing notification id"})
		return
	}

	records, err := s.store.GetDeliveries(notificationID)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to get deliveries", http.StatusInternalServerError, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := s.store.CountSubscriptions()
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to count subscriptions", http.StatusInternalServerError, err)
		return
	}
	notifications, err := s.store.CountNotifications()
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to count notifications", http.StatusInternalServerError, err)
		return
	}

	uptime := time.Since(s.startTime)

	util.WriteJSON(w, http.StatusOK, map[string]any{
		"uptime":             util.FormatUptime(uptime),
		"uptimeSeconds":      int(uptime.Seconds()),
		"subscriptionsCount": subscriptions,
		"notificationsCount": notifications,
		"cacheVersion":       s.cache.CurrentName(),
	})
}

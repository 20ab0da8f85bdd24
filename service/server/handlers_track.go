package server

import (
	"encoding/json"
	"net/http"
	"time"

	"herald/service/notification"
	"herald/service/util"
)

type trackOpenRequest struct {
	NotificationID notification.ID `json:"notificationId"`
	SubscriptionID notification.ID `json:"subscriptionId"`
}

// handleTrackOpen records that a delivered notification was opened. The
// endpoint is anonymous: it is fired from visitors' browsers, racing
// their navigation, so responses stay small and failures stay local.
func (s *Server) handleTrackOpen(w http.ResponseWriter, r *http.Request) {
	var req trackOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	if req.NotificationID == "" || req.SubscriptionID == "" {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "notificationId and subscriptionId are required"})
		return
	}

	marked, err := s.store.MarkOpened(req.NotificationID.String(), req.SubscriptionID.String(), time.Now().UTC())
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to record notification open", http.StatusInternalServerError, err)
		return
	}

	if !marked {
		s.logger.Debug("Open event for unknown delivery", "notificationId", req.NotificationID, "subscriptionId", req.SubscriptionID)
	}

	util.WriteJSON(w, http.StatusOK, map[string]any{"success": marked})
}

package server

import (
	"encoding/json"
	"net/http"

	"herald/service/notification"
	"herald/service/util"

	"github.com/google/uuid"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "endpoint and encryption keys are required"})
		return
	}

	sub := notification.Subscription{
		ID:       uuid.NewString(),
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}

	if err := s.store.AddSubscription(sub); err != nil {
		util.LogAndError(w, s.logger, "Failed to register subscription", http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("Registered push subscription", "subscriptionID", sub.ID)
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"subscriptionId": sub.ID,
	})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "endpoint is required"})
		return
	}

	if err := s.store.DeleteSubscriptionByEndpoint(req.Endpoint); err != nil {
		util.LogAndError(w, s.logger, "Failed to remove subscription", http.StatusInternalServerError, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePushKey(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"publicKey": s.vapidKeys.PublicKey,
	})
}

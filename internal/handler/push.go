package handler

import (
	"context"
	"net/http"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/push"
)

// Subscriber — сторона push-сервиса, где хранятся подписки. Реализация: push.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, sub push.Subscription) error
	Unsubscribe(ctx context.Context, userID, endpoint string) error
}

// PushHandler обрабатывает подписку на пуш-уведомления текущего пользователя.
type PushHandler struct {
	client Subscriber
}

func NewPushHandler(client Subscriber) *PushHandler {
	return &PushHandler{client: client}
}

// SubscribeRequest — тело от фронта (subscription из PushManager.getSubscription()).
type SubscribeRequest struct {
	Subscription push.Subscription `json:"subscription"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Subscription.Valid() {
		writeError(w, http.StatusBadRequest, "subscription.endpoint and subscription.keys required")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := h.client.Subscribe(r.Context(), userID, req.Subscription); err != nil {
		logger.Errorf("push subscribe user=%s: %v", userID, err)
		writeError(w, http.StatusBadGateway, "failed to subscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := h.client.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		logger.Errorf("push unsubscribe user=%s: %v", userID, err)
		writeError(w, http.StatusBadGateway, "failed to unsubscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

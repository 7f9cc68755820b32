package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-chi/chi/v5"

	"github.com/chatbubble/internal/logger"
)

// Sender доставляет payload на endpoint подписки и возвращает HTTP-статус push-провайдера.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub Subscription) (int, error)
}

// WebPushSender шлёт через VAPID (webpush-go).
type WebPushSender struct {
	opts *webpush.Options
}

func NewWebPushSender(keys *VAPIDKeys, subscriber string) *WebPushSender {
	return &WebPushSender{opts: &webpush.Options{
		Subscriber:      subscriber,
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             30,
	}}
}

func (s *WebPushSender) Send(ctx context.Context, payload []byte, sub Subscription) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, s.opts)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Server — HTTP-часть push-сервиса. sender == nil: подписки сохраняются, отправки нет.
type Server struct {
	subs      *SubscriptionStore
	sender    Sender
	publicKey string
}

func NewServer(subs *SubscriptionStore, sender Sender, publicKey string) *Server {
	return &Server{subs: subs, sender: sender, publicKey: publicKey}
}

// Routes вешает /api/*. Защиту (InternalOnly) добавляет вызывающий.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/vapid-public", s.handleVAPIDPublic)
	r.Post("/api/subscribe", s.handleSubscribe)
	r.Delete("/api/subscribe", s.handleUnsubscribe)
	r.Post("/api/notify", s.handleNotify)
}

func (s *Server) handleVAPIDPublic(w http.ResponseWriter, r *http.Request) {
	if s.publicKey == "" {
		http.Error(w, "push not configured", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(s.publicKey))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || !req.Subscription.Valid() {
		http.Error(w, "user_id and subscription (endpoint, keys.p256dh, keys.auth) required", http.StatusBadRequest)
		return
	}
	if err := s.subs.Add(r.Context(), req.UserID, req.Subscription); err != nil {
		logger.Errorf("subscribe: %v", err)
		http.Error(w, "failed to save subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Endpoint == "" {
		http.Error(w, "user_id and endpoint required", http.StatusBadRequest)
		return
	}
	if err := s.subs.Remove(r.Context(), req.UserID, req.Endpoint); err != nil {
		logger.Errorf("unsubscribe: %v", err)
		http.Error(w, "failed to remove subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req Notification
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	subs, err := s.subs.List(ctx, req.UserID)
	if err != nil {
		logger.Errorf("notify: %v", err)
		http.Error(w, "failed to get subscriptions", http.StatusInternalServerError)
		return
	}
	if s.sender != nil {
		payload, _ := json.Marshal(map[string]any{"title": req.Title, "body": req.Body, "data": req.Data})
		for _, sub := range subs {
			status, err := s.sender.Send(ctx, payload, sub)
			if err != nil {
				logger.Errorf("send %s: %v", shortEndpoint(sub.Endpoint), err)
				continue
			}
			// подписка отозвана браузером
			if status == http.StatusGone || status == http.StatusNotFound {
				if err := s.subs.Remove(ctx, req.UserID, sub.Endpoint); err != nil {
					logger.Errorf("drop stale subscription: %v", err)
				}
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func shortEndpoint(e string) string {
	if len(e) > 50 {
		return e[:50]
	}
	return e
}

package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chatbubble/internal/logger"
)

// Client вызывает микросервис пушей. Пустой baseURL — все методы no-op.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewClient создаёт клиент. secret уходит в X-Internal-Secret (см. middleware.InternalOnly).
func NewClient(baseURL, secret string) *Client {
	if baseURL == "" {
		return &Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled — настроен ли push-сервис.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Subscription — подписка браузера (PushSubscription.toJSON()).
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Subscription) Valid() bool {
	return s.Endpoint != "" && s.Keys.P256dh != "" && s.Keys.Auth != ""
}

type SubscribeRequest struct {
	UserID       string       `json:"user_id"`
	Subscription Subscription `json:"subscription"`
}

type UnsubscribeRequest struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
}

// Notification — то, что получает service worker.
type Notification struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

func (c *Client) Subscribe(ctx context.Context, userID string, sub Subscription) error {
	if !c.Enabled() {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/api/subscribe", SubscribeRequest{UserID: userID, Subscription: sub})
}

func (c *Client) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if !c.Enabled() {
		return nil
	}
	return c.send(ctx, http.MethodDelete, "/api/subscribe", UnsubscribeRequest{UserID: userID, Endpoint: endpoint})
}

// Notify отправляет пуш пользователю. Ошибка логируется и возвращается; вызывающие обычно её игнорируют.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.send(ctx, http.MethodPost, "/api/notify", n); err != nil {
		logger.Errorf("push notify %s: %v", n.UserID, err)
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Internal-Secret", c.secret)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("push %s %s: %d", method, path, resp.StatusCode)
	}
	return nil
}

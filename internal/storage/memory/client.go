package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chatbubble/internal/model"
)

type item struct {
	val model.Presence
	exp time.Time
}

// Client — presence в памяти процесса (режим -dev).
type Client struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func New() *Client {
	return &Client{items: make(map[string]item), now: time.Now}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetPresence(ctx context.Context, userID string, p model.Presence, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == model.PresenceOffline {
		delete(c.items, userID)
		return nil
	}
	c.items[userID] = item{val: p, exp: c.now().Add(ttl)}
	return nil
}

func (c *Client) Presence(ctx context.Context, userIDs []string) (map[string]model.Presence, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make(map[string]model.Presence, len(userIDs))
	for _, id := range userIDs {
		v, ok := c.items[id]
		if !ok || now.After(v.exp) {
			out[id] = model.PresenceOffline
			continue
		}
		out[id] = v.val
	}
	return out, nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/storage"
)

const presencePrefix = "presence:"

var _ storage.PresenceStore = (*Client)(nil)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

// NewFromClient оборачивает готовый клиент (тесты с miniredis).
func NewFromClient(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

// Raw отдаёт go-redis клиент для соседних хранилищ (подписки push).
func (c *Client) Raw() *redis.Client { return c.cli }

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) SetPresence(ctx context.Context, userID string, p model.Presence, ttl time.Duration) error {
	defer logger.DeferLogDuration("presence.Set", time.Now())()
	key := presencePrefix + userID
	if p == model.PresenceOffline {
		return c.cli.Del(ctx, key).Err()
	}
	return c.cli.Set(ctx, key, string(p), ttl).Err()
}

func (c *Client) Presence(ctx context.Context, userIDs []string) (map[string]model.Presence, error) {
	defer logger.DeferLogDuration("presence.Get", time.Now())()
	out := make(map[string]model.Presence, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presencePrefix + id
	}
	vals, err := c.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence mget: %w", err)
	}
	for i, id := range userIDs {
		out[id] = model.PresenceOffline
		if s, ok := vals[i].(string); ok && model.Presence(s).Valid() {
			out[id] = model.Presence(s)
		}
	}
	return out, nil
}


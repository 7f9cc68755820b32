package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatbubble/internal/logger"
)

const (
	subsKeyPrefix   = "push:subs:"
	maxSubsPerUser  = 10
	subscriptionTTL = 30 * 24 * time.Hour
)

// SubscriptionStore хранит подписки пользователя списком в Redis: последние maxSubsPerUser, TTL 30 дней.
type SubscriptionStore struct {
	rdb *redis.Client
}

func NewSubscriptionStore(rdb *redis.Client) *SubscriptionStore {
	return &SubscriptionStore{rdb: rdb}
}

// Add сохраняет подписку; повторная подписка того же endpoint заменяет старую.
func (s *SubscriptionStore) Add(ctx context.Context, userID string, sub Subscription) error {
	defer logger.DeferLogDuration("pushSubs.Add", time.Now())()
	if err := s.Remove(ctx, userID, sub.Endpoint); err != nil {
		return err
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("pushSubs.Add encode: %w", err)
	}
	key := subsKeyPrefix + userID
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -maxSubsPerUser, -1)
	pipe.Expire(ctx, key, subscriptionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushSubs.Add: %w", err)
	}
	return nil
}

// List возвращает валидные подписки; битые записи пропускаются.
func (s *SubscriptionStore) List(ctx context.Context, userID string) ([]Subscription, error) {
	defer logger.DeferLogDuration("pushSubs.List", time.Now())()
	items, err := s.rdb.LRange(ctx, subsKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("pushSubs.List: %w", err)
	}
	subs := make([]Subscription, 0, len(items))
	for _, item := range items {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint != "" {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// Remove удаляет подписку по endpoint.
func (s *SubscriptionStore) Remove(ctx context.Context, userID, endpoint string) error {
	defer logger.DeferLogDuration("pushSubs.Remove", time.Now())()
	key := subsKeyPrefix + userID
	items, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("pushSubs.Remove: %w", err)
	}
	for _, item := range items {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) != nil || sub.Endpoint == endpoint {
			if err := s.rdb.LRem(ctx, key, 0, item).Err(); err != nil {
				return fmt.Errorf("pushSubs.Remove: %w", err)
			}
		}
	}
	return nil
}

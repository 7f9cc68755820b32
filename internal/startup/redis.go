package startup

import (
	"context"
	"os"
	"time"

	"github.com/chatbubble/internal/logger"
	redisstorage "github.com/chatbubble/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis с повторами; через maxWait завершает процесс.
func ConnectRedisWithRetry(redisURL string, maxWait time.Duration) *redisstorage.Client {
	var client *redisstorage.Client
	err := retry(maxWait, "redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := redisstorage.New(ctx, redisURL)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		logger.Errorf("redis (gave up after %v): %v", maxWait, err)
		os.Exit(1)
	}
	return client
}

package startup

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatbubble/internal/logger"
)

const maxBackoff = 30 * time.Second

// ConnectDBWithRetry подключается к Postgres с экспоненциальной паузой; через maxWait сдаётся и завершает процесс.
func ConnectDBWithRetry(poolCfg *pgxpool.Config, maxWait time.Duration) *pgxpool.Pool {
	var pool *pgxpool.Pool
	err := retry(maxWait, "db", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		logger.Errorf("connect to db (gave up after %v): %v", maxWait, err)
		os.Exit(1)
	}
	return pool
}

// retry вызывает fn, пока она не вернёт nil или не выйдет maxWait. Пауза 2s, 4s, ... до maxBackoff.
func retry(maxWait time.Duration, what string, fn func() error) error {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return err
		}
		logger.Errorf("%s connect failed, retry in %v: %v", what, backoff, err)
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

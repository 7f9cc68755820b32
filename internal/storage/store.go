package storage

import (
	"context"
	"time"

	"github.com/chatbubble/internal/model"
)

// PresenceStore — отметки присутствия с TTL: online гаснет сам, если клиент пропал без disconnect.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type PresenceStore interface {
	// SetPresence пишет состояние; offline удаляет отметку.
	SetPresence(ctx context.Context, userID string, p model.Presence, ttl time.Duration) error
	// Presence возвращает состояние по списку id; отсутствующие — offline.
	Presence(ctx context.Context, userIDs []string) (map[string]model.Presence, error)
	Close() error
}

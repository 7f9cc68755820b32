package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbubble/internal/model"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestPresenceRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPresence(ctx, "u1", model.PresenceOnline, time.Minute))
	require.NoError(t, c.SetPresence(ctx, "u2", model.PresenceIdle, time.Minute))

	got, err := c.Presence(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Presence{
		"u1": model.PresenceOnline,
		"u2": model.PresenceIdle,
		"u3": model.PresenceOffline,
	}, got)
}

func TestPresenceExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPresence(ctx, "u1", model.PresenceOnline, 30*time.Second))
	mr.FastForward(31 * time.Second)

	got, err := c.Presence(ctx, []string{"u1"})
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOffline, got["u1"])
}

func TestOfflineDeletesKey(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPresence(ctx, "u1", model.PresenceOnline, time.Minute))
	require.NoError(t, c.SetPresence(ctx, "u1", model.PresenceOffline, time.Minute))
	assert.False(t, mr.Exists(presencePrefix+"u1"))
}

func TestPresenceIgnoresGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, mr.Set(presencePrefix+"u1", "sleeping"))

	got, err := c.Presence(context.Background(), []string{"u1"})
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOffline, got["u1"])
}

func TestNewBadURL(t *testing.T) {
	_, err := New(context.Background(), "not a url")
	assert.Error(t, err)
}

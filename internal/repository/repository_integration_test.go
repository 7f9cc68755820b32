package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/startup"
	"github.com/chatbubble/migrations"
)

// testPool подключается к TEST_DATABASE_URL и применяет миграции.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, startup.ApplyMigrations(ctx, pool, migrations.Files))
	return pool
}

func newUser(t *testing.T, repo *UserRepository, name string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.NewString(), Name: name, Email: uuid.NewString() + "@example.com", Presence: model.PresenceOffline, CreatedAt: time.Now().UTC()}
	created, err := repo.Ensure(context.Background(), u)
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	u := newUser(t, users, "Max Mustermann")
	created, err := users.Ensure(ctx, u)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelParticipants(t *testing.T) {
	pool := testPool(t)
	channels := NewChannelRepository(pool)
	ctx := context.Background()

	c := &model.Channel{ID: uuid.NewString(), Name: "general-" + uuid.NewString()[:8], CreatedBy: "u1", Participants: []string{"u1"}, CreatedAt: time.Now().UTC()}
	require.NoError(t, channels.Create(ctx, c))

	dup := *c
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, channels.Create(ctx, &dup), ErrConflict)

	added, err := channels.AddParticipants(ctx, c.ID, []string{"u2", "u1", "u3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, added)

	removed, err := channels.RemoveParticipant(ctx, c.ID, "u2")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := channels.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, got.Participants)

	list, err := channels.ListForUser(ctx, "u3")
	require.NoError(t, err)
	require.NotEmpty(t, list)
}

func TestConcurrentReactionTogglesKeepBoth(t *testing.T) {
	pool := testPool(t)
	channels := NewChannelRepository(pool)
	chats := NewChannelChatRepository(pool)
	ctx := context.Background()

	c := &model.Channel{ID: uuid.NewString(), Name: "react-" + uuid.NewString()[:8], CreatedBy: "u1", Participants: []string{"u1"}, CreatedAt: time.Now().UTC()}
	require.NoError(t, channels.Create(ctx, c))
	m := &model.Message{ID: uuid.NewString(), ParentID: c.ID, AuthorID: "u1", Text: "hi", Timestamp: time.Now().Unix()}
	require.NoError(t, chats.Create(ctx, m))

	var wg sync.WaitGroup
	for _, uid := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := chats.ToggleReaction(ctx, c.ID, m.ID, "like", uid)
			assert.NoError(t, err)
		}(uid)
	}
	wg.Wait()

	got, err := chats.GetByID(ctx, c.ID, m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, got.Reactions["like"])

	_, err = chats.ToggleReaction(ctx, uuid.NewString(), m.ID, "like", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnswerStatsAndListPaging(t *testing.T) {
	pool := testPool(t)
	channels := NewChannelRepository(pool)
	chats := NewChannelChatRepository(pool)
	answers := NewAnswerRepository(pool)
	ctx := context.Background()

	c := &model.Channel{ID: uuid.NewString(), Name: "thread-" + uuid.NewString()[:8], CreatedBy: "u1", Participants: []string{"u1"}, CreatedAt: time.Now().UTC()}
	require.NoError(t, channels.Create(ctx, c))
	parent := &model.Message{ID: uuid.NewString(), ParentID: c.ID, AuthorID: "u1", Text: "q", Timestamp: 100}
	require.NoError(t, chats.Create(ctx, parent))
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, answers.Create(ctx, &model.Message{ID: uuid.NewString(), ParentID: parent.ID, AuthorID: "u1", Text: "a", Timestamp: 100 + i}))
	}

	stats, err := answers.Stats(ctx, []string{parent.ID, "none"})
	require.NoError(t, err)
	assert.Equal(t, model.ThreadStats{Count: 3, LastAnswerAt: 103}, stats[parent.ID])
	_, ok := stats["none"]
	assert.False(t, ok)

	page, err := answers.List(ctx, parent.ID, 2, model.Cursor{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(102), page[0].Timestamp)
	assert.Equal(t, int64(103), page[1].Timestamp)

	older, err := answers.List(ctx, parent.ID, 10, model.Cursor{Before: 102})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, int64(101), older[0].Timestamp)
}

func TestListPagingWithinOneSecond(t *testing.T) {
	pool := testPool(t)
	channels := NewChannelRepository(pool)
	chats := NewChannelChatRepository(pool)
	ctx := context.Background()

	c := &model.Channel{ID: uuid.NewString(), Name: "burst-" + uuid.NewString()[:8], CreatedBy: "u1", Participants: []string{"u1"}, CreatedAt: time.Now().UTC()}
	require.NoError(t, channels.Create(ctx, c))
	want := make([]string, 0, 5)
	for range 5 {
		m := &model.Message{ID: uuid.NewString(), ParentID: c.ID, AuthorID: "u1", Text: "burst", Timestamp: 100}
		require.NoError(t, chats.Create(ctx, m))
		want = append(want, m.ID)
	}
	older := &model.Message{ID: uuid.NewString(), ParentID: c.ID, AuthorID: "u1", Text: "before", Timestamp: 99}
	require.NoError(t, chats.Create(ctx, older))
	want = append(want, older.ID)

	var got []string
	cur := model.Cursor{}
	for range 10 {
		page, err := chats.List(ctx, c.ID, 2, cur)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			got = append(got, m.ID)
		}
		cur = model.Cursor{Before: page[0].Timestamp, BeforeID: page[0].ID}
	}
	assert.ElementsMatch(t, want, got)
	assert.Len(t, got, len(want), "no message is returned twice")
}

func TestDMGetOrCreate(t *testing.T) {
	pool := testPool(t)
	dms := NewDMRepository(pool)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	t1, created, err := dms.GetOrCreate(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, created)
	t2, created, err := dms.GetOrCreate(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, t1.ID, t2.ID)
	assert.Equal(t, model.DMKey(a, b), t1.ID)

	self, _, err := dms.GetOrCreate(ctx, a, a)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, self.Participants)
}

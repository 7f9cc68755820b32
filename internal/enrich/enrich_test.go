package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/reaction"
)

var users = []model.User{
	{ID: "u1", Name: "Max Mustermann", AvatarURL: "/api/avatars/max.png", Presence: model.PresenceOnline},
	{ID: "u2", Name: "Erika Musterfrau"},
}

func TestMessagesJoinAuthors(t *testing.T) {
	msgs := []model.Message{
		{ID: "m1", ParentID: "c1", Text: "hi", AuthorID: "u1", Timestamp: 100, Reactions: model.ReactionMap{"ok": {"u2"}}},
		{ID: "m2", ParentID: "c1", Text: "servus", AuthorID: "u2", Timestamp: 101},
		{ID: "m3", ParentID: "c1", Text: "bye", AuthorID: "gone", Timestamp: 102},
	}

	views := Messages(model.ScopeChannel, msgs, users, "u1")
	require.Len(t, views, 3)

	assert.Equal(t, "Max Mustermann", views[0].AuthorName)
	assert.Equal(t, "/api/avatars/max.png", views[0].AuthorAvatar)
	assert.Equal(t, model.ScopeChannel, views[0].Scope)
	require.Len(t, views[0].Reactions, 1)
	assert.Equal(t, "Erika Musterfrau", views[0].Reactions[0].OtherUserName)

	assert.Equal(t, FallbackAvatar, views[1].AuthorAvatar)
	assert.NotNil(t, views[1].Reactions)

	assert.Equal(t, FormerUserName, views[2].AuthorName)
	assert.Equal(t, FallbackAvatar, views[2].AuthorAvatar)
	assert.True(t, views[2].AuthorFormer)
}

func TestAnswersUseOwnPass(t *testing.T) {
	answers := []model.Message{{ID: "a1", ParentID: "m1", AuthorID: "u2", Text: "yes", Reactions: model.ReactionMap{"ok": {"ghost"}}}}
	views := Answers(answers, users, "u1")
	require.Len(t, views, 1)
	assert.Equal(t, model.ScopeThread, views[0].Scope)
	assert.Equal(t, "Erika Musterfrau", views[0].AuthorName)
	assert.Equal(t, reaction.UnknownName, views[0].Reactions[0].OtherUserName)
}

func TestParticipantsKeepOrderAndFallback(t *testing.T) {
	got := Participants([]string{"u2", "left", "u1"}, users)
	require.Len(t, got, 3)
	assert.Equal(t, "u2", got[0].ID)
	assert.Equal(t, model.PresenceOffline, got[0].Presence)
	assert.Equal(t, FormerUserName, got[1].Name)
	assert.True(t, got[1].Former)
	assert.Equal(t, model.PresenceOnline, got[2].Presence)
}

func TestEmptyInputs(t *testing.T) {
	assert.Empty(t, Messages(model.ScopeDM, nil, nil, ""))
	assert.Empty(t, Participants(nil, nil))
}

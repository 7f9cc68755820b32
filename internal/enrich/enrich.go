// Package enrich joins stored messages with user records to build display-ready views.
package enrich

import (
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/reaction"
)

const (
	// FormerUserName labels authors whose user record is gone (deleted or left).
	FormerUserName = "Ehemaliger Nutzer"
	// FallbackAvatar is shown for authors without a resolvable avatar.
	FallbackAvatar = "/assets/avatars/default.png"
)

// Index is a lookup of users by id.
type Index map[string]*model.User

func NewIndex(users []model.User) Index {
	idx := make(Index, len(users))
	for i := range users {
		idx[users[i].ID] = &users[i]
	}
	return idx
}

// DisplayName implements reaction.NameResolver.
func (idx Index) DisplayName(userID string) (string, bool) {
	u, ok := idx[userID]
	if !ok || u.Name == "" {
		return "", false
	}
	return u.Name, true
}

// Public returns the public form of userID, or a former-user placeholder.
func (idx Index) Public(userID string) model.UserPublic {
	u, ok := idx[userID]
	if !ok {
		return model.UserPublic{
			ID:        userID,
			Name:      FormerUserName,
			AvatarURL: FallbackAvatar,
			Presence:  model.PresenceOffline,
			Former:    true,
		}
	}
	pub := u.ToPublic()
	if pub.AvatarURL == "" {
		pub.AvatarURL = FallbackAvatar
	}
	if pub.Presence == "" {
		pub.Presence = model.PresenceOffline
	}
	return pub
}

// Messages builds views for messages of one scope, resolving authors against users.
func Messages(scope model.Scope, msgs []model.Message, users []model.User, currentUserID string) []model.MessageView {
	return NewIndex(users).Messages(scope, msgs, currentUserID)
}

// Answers builds views for thread answers. It is an independent pass over the answer list.
func Answers(answers []model.Message, users []model.User, currentUserID string) []model.MessageView {
	return NewIndex(users).Messages(model.ScopeThread, answers, currentUserID)
}

func (idx Index) Messages(scope model.Scope, msgs []model.Message, currentUserID string) []model.MessageView {
	views := make([]model.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, idx.Message(scope, &msgs[i], currentUserID))
	}
	return views
}

func (idx Index) Message(scope model.Scope, m *model.Message, currentUserID string) model.MessageView {
	author := idx.Public(m.AuthorID)
	return model.MessageView{
		ID:           m.ID,
		Scope:        scope,
		ParentID:     m.ParentID,
		Text:         m.Text,
		AuthorID:     m.AuthorID,
		AuthorName:   author.Name,
		AuthorAvatar: author.AvatarURL,
		AuthorFormer: author.Former,
		Timestamp:    m.Timestamp,
		EditedAt:     m.EditedAt,
		Reactions:    reaction.Normalize(m.Reactions, currentUserID, idx),
	}
}

// Participants resolves participant ids in order; unknown ids get the former-user placeholder.
func Participants(ids []string, users []model.User) []model.UserPublic {
	idx := NewIndex(users)
	out := make([]model.UserPublic, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.Public(id))
	}
	return out
}

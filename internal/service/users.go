package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatbubble/internal/enrich"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
)

const defaultDisplayName = "Nutzer"

// PresencePayload is sent on the users topic when someone's presence changes.
type PresencePayload struct {
	UserID   string         `json:"user_id"`
	Presence model.Presence `json:"presence"`
}

// EnsureProfile creates the profile on first login and marks the user online.
func (s *ChatService) EnsureProfile(ctx context.Context, id middleware.Identity) (*model.User, error) {
	defer logger.DeferLogDuration("service.EnsureProfile", time.Now())()
	if strings.TrimSpace(id.UserID) == "" {
		return nil, ErrInvalidInput
	}
	now := s.now().UTC()
	u := &model.User{
		ID:         id.UserID,
		Name:       displayNameFor(id),
		Email:      strings.ToLower(strings.TrimSpace(id.Email)),
		Presence:   model.PresenceOnline,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.users.Ensure(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("service.EnsureProfile: %w", err)
	}
	if created {
		logger.Infof("profile created user=%s", u.ID)
		s.publish(model.TopicUsers, model.EventUserUpdated, u.ToPublic())
	}
	if err := s.SetPresence(ctx, id.UserID, model.PresenceOnline); err != nil {
		logger.Errorf("EnsureProfile presence user=%s: %v", id.UserID, err)
	}
	stored, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("service.EnsureProfile: %w", err)
	}
	stored.Presence = model.PresenceOnline
	return stored, nil
}

func displayNameFor(id middleware.Identity) string {
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(id.Email), "@"); ok && local != "" {
		return local
	}
	return defaultDisplayName
}

// Logout marks the user offline and closes every stream they hold.
func (s *ChatService) Logout(ctx context.Context, userID string) error {
	if err := s.SetPresence(ctx, userID, model.PresenceOffline); err != nil {
		logger.Errorf("Logout presence user=%s: %v", userID, err)
	}
	if s.pub != nil {
		s.pub.DisconnectUser(userID)
	}
	return nil
}

// UpdateProfile changes the caller's own name and avatar. An empty avatar keeps the current one.
func (s *ChatService) UpdateProfile(ctx context.Context, callerID, targetID, name, avatarURL string) (model.UserPublic, error) {
	if callerID != targetID {
		return model.UserPublic{}, ErrForbidden
	}
	name, err := cleanText(name, maxNameRunes)
	if err != nil {
		return model.UserPublic{}, err
	}
	cur, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("service.UpdateProfile: %w", err)
	}
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		avatarURL = cur.AvatarURL
	}
	if err := s.users.UpdateProfile(ctx, targetID, name, avatarURL); err != nil {
		return model.UserPublic{}, fmt.Errorf("service.UpdateProfile: %w", err)
	}
	cur.Name = name
	cur.AvatarURL = avatarURL
	pub := s.withPresence(ctx, []model.UserPublic{enrich.NewIndex([]model.User{*cur}).Public(cur.ID)})[0]
	s.publish(model.TopicUsers, model.EventUserUpdated, pub)
	return pub, nil
}

// SetPresence records presence in the TTL store and in the profile, then broadcasts it.
// It implements ws.PresenceTracker.
func (s *ChatService) SetPresence(ctx context.Context, userID string, p model.Presence) error {
	if userID == "" || !p.Valid() {
		return ErrInvalidInput
	}
	if s.presence != nil {
		if err := s.presence.SetPresence(ctx, userID, p, s.presenceTTL); err != nil {
			logger.Errorf("presence store user=%s: %v", userID, err)
		}
	}
	if err := s.users.SetPresence(ctx, userID, p); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("service.SetPresence: %w", err)
	}
	s.publish(model.TopicUsers, model.EventPresenceChanged, PresencePayload{UserID: userID, Presence: p})
	return nil
}

// RefreshPresence extends the TTL of a connected user's presence mark without
// touching the profile or broadcasting. It implements ws.PresenceTracker.
func (s *ChatService) RefreshPresence(ctx context.Context, userID string, p model.Presence) error {
	if userID == "" || !p.Valid() {
		return ErrInvalidInput
	}
	if s.presence == nil {
		return nil
	}
	if err := s.presence.SetPresence(ctx, userID, p, s.presenceTTL); err != nil {
		return fmt.Errorf("service.RefreshPresence: %w", err)
	}
	return nil
}

// ListUsers returns the directory with live presence.
func (s *ChatService) ListUsers(ctx context.Context) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("service.ListUsers", time.Now())()
	users, err := s.users.ListAll(ctx, defaultUserLimit)
	if err != nil {
		return nil, fmt.Errorf("service.ListUsers: %w", err)
	}
	idx := enrich.NewIndex(users)
	out := make([]model.UserPublic, 0, len(users))
	for _, u := range users {
		out = append(out, idx.Public(u.ID))
	}
	return s.withPresence(ctx, out), nil
}

func (s *ChatService) GetUser(ctx context.Context, id string) (model.UserPublic, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.UserPublic{}, fmt.Errorf("service.GetUser: %w", err)
	}
	return s.withPresence(ctx, []model.UserPublic{enrich.NewIndex([]model.User{*u}).Public(u.ID)})[0], nil
}

// withPresence overlays the TTL store onto users; placeholders for former users are left alone.
// A failing store leaves the persisted presence in place.
func (s *ChatService) withPresence(ctx context.Context, users []model.UserPublic) []model.UserPublic {
	if s.presence == nil || len(users) == 0 {
		return users
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if !u.Former {
			ids = append(ids, u.ID)
		}
	}
	live, err := s.presence.Presence(ctx, ids)
	if err != nil {
		logger.Errorf("presence lookup: %v", err)
		return users
	}
	for i := range users {
		if users[i].Former {
			continue
		}
		if p, ok := live[users[i].ID]; ok {
			users[i].Presence = p
		}
	}
	return users
}

// members resolves ids to public users with live presence.
func (s *ChatService) members(ctx context.Context, ids []string) ([]model.UserPublic, error) {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.withPresence(ctx, enrich.Participants(ids, users)), nil
}

// Package service holds the chat use cases: profiles, channels, threads, direct
// messages and compose. It talks to persistence through the store interfaces
// below and to connected clients through a Publisher.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/push"
	"github.com/chatbubble/internal/repository"
	"github.com/chatbubble/internal/storage"
	"github.com/chatbubble/internal/ws"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrConflict     = repository.ErrConflict
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("missing input")
)

const (
	maxTextRunes     = 4000
	maxNameRunes     = 80
	defaultPageSize  = 50
	maxPageSize      = 200
	defaultUserLimit = 500
)

type UserStore interface {
	Ensure(ctx context.Context, u *model.User) (bool, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	FindByName(ctx context.Context, name string) ([]model.User, error)
	ListAll(ctx context.Context, limit int) ([]model.User, error)
	UpdateProfile(ctx context.Context, userID, name, avatarURL string) error
	SetPresence(ctx context.Context, userID string, p model.Presence) error
}

type ChannelStore interface {
	Create(ctx context.Context, c *model.Channel) error
	GetByID(ctx context.Context, id string) (*model.Channel, error)
	GetByName(ctx context.Context, name string) (*model.Channel, error)
	ListForUser(ctx context.Context, userID string) ([]model.Channel, error)
	UpdateMeta(ctx context.Context, id, name, description string) error
	AddParticipants(ctx context.Context, id string, userIDs []string) ([]string, error)
	RemoveParticipant(ctx context.Context, id, userID string) (bool, error)
}

// MessageStore is one message collection: channel chats, thread answers or DM messages.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, parentID, id string) (*model.Message, error)
	List(ctx context.Context, parentID string, limit int, cur model.Cursor) ([]model.Message, error)
	UpdateText(ctx context.Context, parentID, id, text string, editedAt int64) error
	ToggleReaction(ctx context.Context, parentID, id, reactionType, userID string) (model.ReactionMap, error)
	Stats(ctx context.Context, parentIDs []string) (map[string]model.ThreadStats, error)
}

type DMStore interface {
	GetOrCreate(ctx context.Context, a, b string) (*model.DMThread, bool, error)
	GetByID(ctx context.Context, id string) (*model.DMThread, error)
	ListForUser(ctx context.Context, userID string) ([]model.DMThread, error)
}

// Publisher delivers events to connected clients. Implemented by ws.Hub.
type Publisher interface {
	Publish(topic string, eventType model.EventType, payload any)
	NotifyUsers(userIDs []string, eventType model.EventType, payload any)
	Revoke(userID, topicPrefix string)
	DisconnectUser(userID string)
}

// Notifier sends push notifications. Implemented by push.Client.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, n push.Notification) error
}

var (
	_ UserStore          = (*repository.UserRepository)(nil)
	_ ChannelStore       = (*repository.ChannelRepository)(nil)
	_ MessageStore       = (*repository.MessageRepository)(nil)
	_ DMStore            = (*repository.DMRepository)(nil)
	_ Publisher          = (*ws.Hub)(nil)
	_ Notifier           = (*push.Client)(nil)
	_ ws.Authorizer      = (*ChatService)(nil)
	_ ws.PresenceTracker = (*ChatService)(nil)
)

type Deps struct {
	Users       UserStore
	Channels    ChannelStore
	Chats       MessageStore
	Answers     MessageStore
	DMs         DMStore
	DMMessages  MessageStore
	Presence    storage.PresenceStore
	PresenceTTL time.Duration
	Publisher   Publisher
	Notifier    Notifier
}

type ChatService struct {
	users       UserStore
	channels    ChannelStore
	chats       MessageStore
	answers     MessageStore
	dms         DMStore
	dmMessages  MessageStore
	presence    storage.PresenceStore
	presenceTTL time.Duration
	pub         Publisher
	notifier    Notifier

	now   func() time.Time
	newID func() string
}

func New(d Deps) *ChatService {
	ttl := d.PresenceTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ChatService{
		users:       d.Users,
		channels:    d.Channels,
		chats:       d.Chats,
		answers:     d.Answers,
		dms:         d.DMs,
		dmMessages:  d.DMMessages,
		presence:    d.Presence,
		presenceTTL: ttl,
		pub:         d.Publisher,
		notifier:    d.Notifier,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// SetPublisher replaces the publisher; the hub and the service reference each other.
func (s *ChatService) SetPublisher(p Publisher) { s.pub = p }

func (s *ChatService) publish(topic string, t model.EventType, payload any) {
	if s.pub != nil {
		s.pub.Publish(topic, t, payload)
	}
}

func (s *ChatService) notifyUsers(ids []string, t model.EventType, payload any) {
	if s.pub != nil && len(ids) > 0 {
		s.pub.NotifyUsers(ids, t, payload)
	}
}

// cleanText trims text and enforces the length limit.
func cleanText(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrInvalidInput
	}
	if utf8.RuneCountInString(text) > limit {
		return "", fmt.Errorf("%w: text too long", ErrInvalidInput)
	}
	return text, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

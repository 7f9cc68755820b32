package handler

import (
	"context"

	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/service"
)

// ChatService is what the handlers need from service.ChatService.
type ChatService interface {
	EnsureProfile(ctx context.Context, id middleware.Identity) (*model.User, error)
	Logout(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, callerID, targetID, name, avatarURL string) (model.UserPublic, error)
	SetPresence(ctx context.Context, userID string, p model.Presence) error
	ListUsers(ctx context.Context) ([]model.UserPublic, error)
	GetUser(ctx context.Context, id string) (model.UserPublic, error)

	CreateChannel(ctx context.Context, callerID, name, description string, participantIDs []string) (*model.ChannelView, error)
	UpdateChannel(ctx context.Context, callerID, channelID, name, description string) (*model.ChannelView, error)
	AddParticipants(ctx context.Context, callerID, channelID string, userIDs []string) (*model.ChannelView, error)
	LeaveChannel(ctx context.Context, callerID, channelID string) error
	ListChannels(ctx context.Context, callerID string) ([]model.Channel, error)
	GetChannel(ctx context.Context, callerID, channelID string) (*model.ChannelView, error)

	PostChannelMessage(ctx context.Context, callerID, channelID, text string) (*model.MessageView, error)
	ListChannelMessages(ctx context.Context, callerID, channelID string, limit int, cur model.Cursor) ([]model.MessageView, error)
	EditChannelMessage(ctx context.Context, callerID, channelID, chatID, text string) (*model.MessageView, error)
	ToggleChannelReaction(ctx context.Context, callerID, channelID, chatID, reactionType string) ([]model.ReactionView, error)

	PostAnswer(ctx context.Context, callerID, channelID, chatID, text string) (*model.MessageView, error)
	ListAnswers(ctx context.Context, callerID, channelID, chatID string, limit int, cur model.Cursor) ([]model.MessageView, error)
	EditAnswer(ctx context.Context, callerID, channelID, chatID, answerID, text string) (*model.MessageView, error)
	ToggleAnswerReaction(ctx context.Context, callerID, channelID, chatID, answerID, reactionType string) ([]model.ReactionView, error)

	GetOrCreateDM(ctx context.Context, callerID, otherID string) (*model.DMThreadView, error)
	ListDMs(ctx context.Context, callerID string) ([]model.DMThreadView, error)
	PostDM(ctx context.Context, callerID, threadID, text string) (*model.MessageView, error)
	ListDMMessages(ctx context.Context, callerID, threadID string, limit int, cur model.Cursor) ([]model.MessageView, error)
	EditDM(ctx context.Context, callerID, threadID, messageID, text string) (*model.MessageView, error)
	ToggleDMReaction(ctx context.Context, callerID, threadID, messageID, reactionType string) ([]model.ReactionView, error)

	Compose(ctx context.Context, callerID, recipients, text string) (*service.ComposeResult, error)
}

var _ ChatService = (*service.ChatService)(nil)

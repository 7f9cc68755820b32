package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
)

// Channel names must be mentionable with #name.
var channelNameRe = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

type ParticipantsPayload struct {
	ChannelID string   `json:"channel_id"`
	UserIDs   []string `json:"user_ids"`
}

func validChannelName(name string) (string, error) {
	name, err := cleanText(name, maxNameRunes)
	if err != nil {
		return "", err
	}
	if !channelNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: channel name may contain letters, digits, _ and - only", ErrInvalidInput)
	}
	return name, nil
}

// CreateChannel creates a channel with the caller as the first participant.
func (s *ChatService) CreateChannel(ctx context.Context, callerID, name, description string, participantIDs []string) (*model.ChannelView, error) {
	defer logger.DeferLogDuration("service.CreateChannel", time.Now())()
	name, err := validChannelName(name)
	if err != nil {
		return nil, err
	}
	others, err := s.knownUserIDs(ctx, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("service.CreateChannel: %w", err)
	}
	participants, _ := model.MergeIDs([]string{callerID}, others)
	c := &model.Channel{
		ID:           s.newID(),
		Name:         name,
		Description:  strings.TrimSpace(description),
		CreatedBy:    callerID,
		Participants: participants,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.channels.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("service.CreateChannel: %w", err)
	}
	view, err := s.channelView(ctx, c)
	if err != nil {
		return nil, err
	}
	s.notifyUsers(c.Participants, model.EventChannelCreated, view)
	return view, nil
}

// UpdateChannel changes name and description; any participant may do it.
func (s *ChatService) UpdateChannel(ctx context.Context, callerID, channelID, name, description string) (*model.ChannelView, error) {
	c, err := s.participantChannel(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	name, err = validChannelName(name)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if err := s.channels.UpdateMeta(ctx, channelID, name, description); err != nil {
		return nil, fmt.Errorf("service.UpdateChannel: %w", err)
	}
	c.Name = name
	c.Description = description
	view, err := s.channelView(ctx, c)
	if err != nil {
		return nil, err
	}
	s.publish(model.ChannelTopic(channelID), model.EventChannelUpdated, view)
	return view, nil
}

// AddParticipants adds users to a channel. Ids that are already members are skipped.
func (s *ChatService) AddParticipants(ctx context.Context, callerID, channelID string, userIDs []string) (*model.ChannelView, error) {
	if _, err := s.participantChannel(ctx, callerID, channelID); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, ErrInvalidInput
	}
	ids, err := s.knownUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("service.AddParticipants: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	added, err := s.channels.AddParticipants(ctx, channelID, ids)
	if err != nil {
		return nil, fmt.Errorf("service.AddParticipants: %w", err)
	}
	c, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("service.AddParticipants: %w", err)
	}
	view, err := s.channelView(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.publish(model.ChannelTopic(channelID), model.EventParticipantsAdd, ParticipantsPayload{ChannelID: channelID, UserIDs: added})
		s.notifyUsers(added, model.EventChannelCreated, view)
	}
	return view, nil
}

// knownUserIDs keeps the ids that belong to existing profiles, in input order.
func (s *ChatService) knownUserIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	known, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	exists := make(map[string]struct{}, len(known))
	for _, u := range known {
		exists[u.ID] = struct{}{}
	}
	out := make([]string, 0, len(known))
	for _, id := range ids {
		if _, ok := exists[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// LeaveChannel removes the caller and revokes their subscriptions under the channel.
func (s *ChatService) LeaveChannel(ctx context.Context, callerID, channelID string) error {
	removed, err := s.channels.RemoveParticipant(ctx, channelID, callerID)
	if err != nil {
		return fmt.Errorf("service.LeaveChannel: %w", err)
	}
	if !removed {
		return ErrForbidden
	}
	if s.pub != nil {
		s.pub.Revoke(callerID, model.ChannelTopic(channelID))
	}
	s.publish(model.ChannelTopic(channelID), model.EventParticipantLeft, ParticipantsPayload{ChannelID: channelID, UserIDs: []string{callerID}})
	return nil
}

func (s *ChatService) ListChannels(ctx context.Context, callerID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("service.ListChannels", time.Now())()
	list, err := s.channels.ListForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("service.ListChannels: %w", err)
	}
	return list, nil
}

func (s *ChatService) GetChannel(ctx context.Context, callerID, channelID string) (*model.ChannelView, error) {
	c, err := s.participantChannel(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return s.channelView(ctx, c)
}

func (s *ChatService) channelView(ctx context.Context, c *model.Channel) (*model.ChannelView, error) {
	members, err := s.members(ctx, c.Participants)
	if err != nil {
		return nil, fmt.Errorf("service.channelView: %w", err)
	}
	return &model.ChannelView{Channel: *c, Members: members}, nil
}

// participantChannel loads a channel the caller belongs to.
func (s *ChatService) participantChannel(ctx context.Context, callerID, channelID string) (*model.Channel, error) {
	c, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("service.channel %s: %w", channelID, err)
	}
	if !c.HasParticipant(callerID) {
		return nil, ErrForbidden
	}
	return c, nil
}

// Authorize implements ws.Authorizer: channel topics need channel membership,
// DM topics need thread membership, the users topic is open to everyone.
func (s *ChatService) Authorize(ctx context.Context, userID, topic string) error {
	kind, ids, ok := model.ParseTopic(topic)
	if !ok {
		return fmt.Errorf("%w: unknown topic", ErrInvalidInput)
	}
	switch kind {
	case "users":
		return nil
	case "channel", "chats":
		_, err := s.participantChannel(ctx, userID, ids[0])
		return err
	case "answers":
		if _, err := s.participantChannel(ctx, userID, ids[0]); err != nil {
			return err
		}
		if _, err := s.chats.GetByID(ctx, ids[0], ids[1]); err != nil {
			return fmt.Errorf("service.Authorize: %w", err)
		}
		return nil
	case "dm":
		_, err := s.participantDM(ctx, userID, ids[0])
		return err
	}
	return errors.New("unsupported topic")
}

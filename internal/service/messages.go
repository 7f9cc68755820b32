package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatbubble/internal/enrich"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/reaction"
)

// ReactionsPayload is broadcast after a toggle. Reactions carry no viewer flags;
// clients derive them from user_ids.
type ReactionsPayload struct {
	Scope     model.Scope          `json:"scope"`
	ParentID  string               `json:"parent_id"`
	MessageID string               `json:"message_id"`
	Reactions []model.ReactionView `json:"reactions"`
}

// location is one message collection instance the caller has access to.
type location struct {
	scope        model.Scope
	store        MessageStore
	parentID     string
	topics       []string
	channelID    string
	participants []string
}

func (s *ChatService) channelLocation(ctx context.Context, callerID, channelID string) (*location, error) {
	c, err := s.participantChannel(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return &location{
		scope:        model.ScopeChannel,
		store:        s.chats,
		parentID:     channelID,
		topics:       []string{model.ChannelChatsTopic(channelID)},
		channelID:    channelID,
		participants: c.Participants,
	}, nil
}

// threadLocation also publishes new answers on the chats topic so parents can
// refresh their answer counters.
func (s *ChatService) threadLocation(ctx context.Context, callerID, channelID, chatID string) (*location, error) {
	c, err := s.participantChannel(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chats.GetByID(ctx, channelID, chatID); err != nil {
		return nil, fmt.Errorf("service.thread %s: %w", chatID, err)
	}
	return &location{
		scope:        model.ScopeThread,
		store:        s.answers,
		parentID:     chatID,
		topics:       []string{model.AnswersTopic(channelID, chatID), model.ChannelChatsTopic(channelID)},
		channelID:    channelID,
		participants: c.Participants,
	}, nil
}

func (s *ChatService) dmLocation(ctx context.Context, callerID, threadID string) (*location, error) {
	t, err := s.participantDM(ctx, callerID, threadID)
	if err != nil {
		return nil, err
	}
	return &location{
		scope:        model.ScopeDM,
		store:        s.dmMessages,
		parentID:     threadID,
		topics:       []string{model.DMMessagesTopic(threadID)},
		participants: t.Participants,
	}, nil
}

func (s *ChatService) post(ctx context.Context, loc *location, authorID, text string) (*model.MessageView, error) {
	defer logger.DeferLogDuration("service.post", time.Now())()
	text, err := cleanText(text, maxTextRunes)
	if err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:        s.newID(),
		ParentID:  loc.parentID,
		Text:      text,
		AuthorID:  authorID,
		Timestamp: s.now().Unix(),
		Reactions: model.ReactionMap{},
	}
	if err := loc.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("service.post %s: %w", loc.scope, err)
	}
	idx, err := s.indexFor(ctx, []model.Message{*m})
	if err != nil {
		return nil, err
	}
	broadcast := idx.Message(loc.scope, m, "")
	for _, topic := range loc.topics {
		s.publish(topic, model.EventMessageCreated, broadcast)
	}
	s.notifyMentions(ctx, loc, m, idx)
	view := idx.Message(loc.scope, m, authorID)
	return &view, nil
}

func (s *ChatService) list(ctx context.Context, loc *location, callerID string, limit int, cur model.Cursor) ([]model.MessageView, error) {
	defer logger.DeferLogDuration("service.list", time.Now())()
	msgs, err := loc.store.List(ctx, loc.parentID, pageSize(limit), cur)
	if err != nil {
		return nil, fmt.Errorf("service.list %s: %w", loc.scope, err)
	}
	idx, err := s.indexFor(ctx, msgs)
	if err != nil {
		return nil, err
	}
	views := idx.Messages(loc.scope, msgs, callerID)
	if loc.scope != model.ScopeChannel || len(msgs) == 0 {
		return views, nil
	}
	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	stats, err := s.answers.Stats(ctx, ids)
	if err != nil {
		logger.Errorf("answer stats channel=%s: %v", loc.parentID, err)
		return views, nil
	}
	for i := range views {
		if st, ok := stats[views[i].ID]; ok {
			st := st
			views[i].Thread = &st
		}
	}
	return views, nil
}

// edit replaces the text of a message. Only the author may edit.
func (s *ChatService) edit(ctx context.Context, loc *location, callerID, messageID, text string) (*model.MessageView, error) {
	text, err := cleanText(text, maxTextRunes)
	if err != nil {
		return nil, err
	}
	m, err := loc.store.GetByID(ctx, loc.parentID, messageID)
	if err != nil {
		return nil, fmt.Errorf("service.edit %s: %w", loc.scope, err)
	}
	if m.AuthorID != callerID {
		return nil, ErrForbidden
	}
	editedAt := s.now().Unix()
	if err := loc.store.UpdateText(ctx, loc.parentID, messageID, text, editedAt); err != nil {
		return nil, fmt.Errorf("service.edit %s: %w", loc.scope, err)
	}
	m.Text = text
	m.EditedAt = &editedAt
	idx, err := s.indexFor(ctx, []model.Message{*m})
	if err != nil {
		return nil, err
	}
	s.publish(loc.topics[0], model.EventMessageEdited, idx.Message(loc.scope, m, ""))
	view := idx.Message(loc.scope, m, callerID)
	return &view, nil
}

// toggle adds or removes the caller's reaction and returns the normalized reactions.
func (s *ChatService) toggle(ctx context.Context, loc *location, callerID, messageID, reactionType string) ([]model.ReactionView, error) {
	reactionType, err := cleanText(reactionType, maxNameRunes)
	if err != nil {
		return nil, err
	}
	reactions, err := loc.store.ToggleReaction(ctx, loc.parentID, messageID, reactionType, callerID)
	if err != nil {
		return nil, fmt.Errorf("service.toggle %s: %w", loc.scope, err)
	}
	var reactors []string
	for _, ids := range reactions {
		reactors = append(reactors, ids...)
	}
	users, err := s.users.GetByIDs(ctx, reaction.SplitIDs(reactors))
	if err != nil {
		return nil, fmt.Errorf("service.toggle users: %w", err)
	}
	idx := enrich.NewIndex(users)
	s.publish(loc.topics[0], model.EventReactionsChanged, ReactionsPayload{
		Scope:     loc.scope,
		ParentID:  loc.parentID,
		MessageID: messageID,
		Reactions: reaction.Normalize(reactions, "", idx),
	})
	return reaction.Normalize(reactions, callerID, idx), nil
}

// indexFor loads the authors and reactors of msgs.
func (s *ChatService) indexFor(ctx context.Context, msgs []model.Message) (enrich.Index, error) {
	var ids []string
	for i := range msgs {
		ids = append(ids, msgs[i].AuthorID)
		for _, reactors := range msgs[i].Reactions {
			ids = append(ids, reactors...)
		}
	}
	ids = reaction.SplitIDs(ids)
	if len(ids) == 0 {
		return enrich.Index{}, nil
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service.indexFor: %w", err)
	}
	return enrich.NewIndex(users), nil
}

func (s *ChatService) PostChannelMessage(ctx context.Context, callerID, channelID, text string) (*model.MessageView, error) {
	loc, err := s.channelLocation(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, loc, callerID, text)
}

// ListChannelMessages returns one page of channel messages, oldest first, with answer stats.
// cur pages backwards from the oldest message of the previous page; the zero cursor means the newest page.
func (s *ChatService) ListChannelMessages(ctx context.Context, callerID, channelID string, limit int, cur model.Cursor) ([]model.MessageView, error) {
	loc, err := s.channelLocation(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, loc, callerID, limit, cur)
}

func (s *ChatService) EditChannelMessage(ctx context.Context, callerID, channelID, chatID, text string) (*model.MessageView, error) {
	loc, err := s.channelLocation(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, loc, callerID, chatID, text)
}

func (s *ChatService) ToggleChannelReaction(ctx context.Context, callerID, channelID, chatID, reactionType string) ([]model.ReactionView, error) {
	loc, err := s.channelLocation(ctx, callerID, channelID)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, loc, callerID, chatID, reactionType)
}

func (s *ChatService) PostAnswer(ctx context.Context, callerID, channelID, chatID, text string) (*model.MessageView, error) {
	loc, err := s.threadLocation(ctx, callerID, channelID, chatID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, loc, callerID, text)
}

func (s *ChatService) ListAnswers(ctx context.Context, callerID, channelID, chatID string, limit int, cur model.Cursor) ([]model.MessageView, error) {
	loc, err := s.threadLocation(ctx, callerID, channelID, chatID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, loc, callerID, limit, cur)
}

func (s *ChatService) EditAnswer(ctx context.Context, callerID, channelID, chatID, answerID, text string) (*model.MessageView, error) {
	loc, err := s.threadLocation(ctx, callerID, channelID, chatID)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, loc, callerID, answerID, text)
}

func (s *ChatService) ToggleAnswerReaction(ctx context.Context, callerID, channelID, chatID, answerID, reactionType string) ([]model.ReactionView, error) {
	loc, err := s.threadLocation(ctx, callerID, channelID, chatID)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, loc, callerID, answerID, reactionType)
}

func (s *ChatService) PostDM(ctx context.Context, callerID, threadID, text string) (*model.MessageView, error) {
	loc, err := s.dmLocation(ctx, callerID, threadID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, loc, callerID, text)
}

func (s *ChatService) ListDMMessages(ctx context.Context, callerID, threadID string, limit int, cur model.Cursor) ([]model.MessageView, error) {
	loc, err := s.dmLocation(ctx, callerID, threadID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, loc, callerID, limit, cur)
}

func (s *ChatService) EditDM(ctx context.Context, callerID, threadID, messageID, text string) (*model.MessageView, error) {
	loc, err := s.dmLocation(ctx, callerID, threadID)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, loc, callerID, messageID, text)
}

func (s *ChatService) ToggleDMReaction(ctx context.Context, callerID, threadID, messageID, reactionType string) ([]model.ReactionView, error) {
	loc, err := s.dmLocation(ctx, callerID, threadID)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, loc, callerID, messageID, reactionType)
}

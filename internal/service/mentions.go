package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatbubble/internal/enrich"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/mention"
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/push"
)

const (
	pushConcurrency = 8
	pushTimeout     = 5 * time.Second
	pushBodyRunes   = 140
)

// MentionPayload is sent to each mentioned participant.
type MentionPayload struct {
	Scope      model.Scope `json:"scope"`
	ChannelID  string      `json:"channel_id,omitempty"`
	ParentID   string      `json:"parent_id"`
	MessageID  string      `json:"message_id"`
	AuthorID   string      `json:"author_id"`
	AuthorName string      `json:"author_name"`
	Text       string      `json:"text"`
}

// mentionedParticipants returns the participants named in text by display name or e-mail.
// The author is never included.
func mentionedParticipants(text, authorID string, participants []model.User) []string {
	names := make([]string, 0, len(participants))
	for _, u := range participants {
		names = append(names, u.Name)
	}
	found := mention.Scan(text, names...)
	if len(found.Users) == 0 && len(found.Emails) == 0 {
		return nil
	}
	var ids []string
	for _, u := range participants {
		if u.ID == authorID {
			continue
		}
		if containsFold(found.Users, u.Name) || (u.Email != "" && containsFold(found.Emails, u.Email)) {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// notifyMentions sends a mention event and a push notification to every mentioned participant.
// Failures are logged only.
func (s *ChatService) notifyMentions(ctx context.Context, loc *location, m *model.Message, idx enrich.Index) {
	if !strings.Contains(m.Text, "@") {
		return
	}
	participants, err := s.users.GetByIDs(ctx, loc.participants)
	if err != nil {
		logger.Errorf("mentions %s/%s: %v", loc.scope, m.ID, err)
		return
	}
	targets := mentionedParticipants(m.Text, m.AuthorID, participants)
	if len(targets) == 0 {
		return
	}
	author := idx.Public(m.AuthorID)
	payload := MentionPayload{
		Scope:      loc.scope,
		ChannelID:  loc.channelID,
		ParentID:   loc.parentID,
		MessageID:  m.ID,
		AuthorID:   m.AuthorID,
		AuthorName: author.Name,
		Text:       m.Text,
	}
	s.notifyUsers(targets, model.EventMention, payload)

	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	var g errgroup.Group
	g.SetLimit(pushConcurrency)
	for _, id := range targets {
		n := push.Notification{
			UserID: id,
			Title:  author.Name,
			Body:   truncateRunes(m.Text, pushBodyRunes),
			Data: map[string]string{
				"scope":      string(loc.scope),
				"channel_id": loc.channelID,
				"parent_id":  loc.parentID,
				"message_id": m.ID,
			},
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
			defer cancel()
			if err := s.notifier.Notify(pctx, n); err != nil {
				logger.Errorf("mention push user=%s msg=%s: %v", n.UserID, m.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

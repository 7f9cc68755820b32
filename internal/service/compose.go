package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/mention"
	"github.com/chatbubble/internal/model"
)

const composeConcurrency = 4

type TargetKind string

const (
	TargetUser    TargetKind = "user"
	TargetChannel TargetKind = "channel"
	TargetEmail   TargetKind = "email"
)

// ComposeTarget is one recipient as written by the caller and where it ended up.
type ComposeTarget struct {
	Kind      TargetKind         `json:"kind"`
	Name      string             `json:"name"`
	UserID    string             `json:"user_id,omitempty"`
	ChannelID string             `json:"channel_id,omitempty"`
	ThreadID  string             `json:"thread_id,omitempty"`
	Message   *model.MessageView `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type ComposeResult struct {
	Delivered  []ComposeTarget `json:"delivered"`
	Failed     []ComposeTarget `json:"failed"`
	Unresolved []ComposeTarget `json:"unresolved"`
}

// Compose sends text to every recipient named in recipients: @users and e-mails get a
// DM, #channels the caller belongs to get a channel message. Deliveries run concurrently
// and a failing one never stops the others.
func (s *ChatService) Compose(ctx context.Context, callerID, recipients, text string) (*ComposeResult, error) {
	defer logger.DeferLogDuration("service.Compose", time.Now())()
	if strings.TrimSpace(recipients) == "" {
		return nil, ErrInvalidInput
	}
	text, err := cleanText(text, maxTextRunes)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListAll(ctx, defaultUserLimit)
	if err != nil {
		return nil, fmt.Errorf("service.Compose: %w", err)
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	found := mention.Scan(recipients, names...)
	if found.Empty() {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidInput)
	}

	res := &ComposeResult{Delivered: []ComposeTarget{}, Failed: []ComposeTarget{}, Unresolved: []ComposeTarget{}}
	var targets []ComposeTarget
	seenUser := map[string]struct{}{}
	addUser := func(kind TargetKind, name, userID string) {
		if _, ok := seenUser[userID]; ok {
			return
		}
		seenUser[userID] = struct{}{}
		targets = append(targets, ComposeTarget{Kind: kind, Name: name, UserID: userID, ThreadID: model.DMKey(callerID, userID)})
	}

	for _, name := range found.Users {
		matches, err := s.users.FindByName(ctx, name)
		if err != nil || len(matches) == 0 {
			res.Unresolved = append(res.Unresolved, ComposeTarget{Kind: TargetUser, Name: name})
			continue
		}
		// display names are not unique; the oldest profile wins
		addUser(TargetUser, name, matches[0].ID)
	}
	for _, addr := range found.Emails {
		u, err := s.users.GetByEmail(ctx, addr)
		if err != nil {
			res.Unresolved = append(res.Unresolved, ComposeTarget{Kind: TargetEmail, Name: addr})
			continue
		}
		addUser(TargetEmail, addr, u.ID)
	}
	for _, name := range found.Channels {
		c, err := s.channels.GetByName(ctx, name)
		if err != nil || !c.HasParticipant(callerID) {
			res.Unresolved = append(res.Unresolved, ComposeTarget{Kind: TargetChannel, Name: name})
			continue
		}
		targets = append(targets, ComposeTarget{Kind: TargetChannel, Name: name, ChannelID: c.ID})
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(composeConcurrency)
	for _, t := range targets {
		g.Go(func() error {
			msg, err := s.deliver(ctx, callerID, t, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Errorf("compose %s %q: %v", t.Kind, t.Name, err)
				t.Error = deliveryError(err)
				res.Failed = append(res.Failed, t)
				return nil
			}
			t.Message = msg
			res.Delivered = append(res.Delivered, t)
			return nil
		})
	}
	_ = g.Wait()
	logger.Infof("compose user=%s delivered=%d failed=%d unresolved=%d",
		callerID, len(res.Delivered), len(res.Failed), len(res.Unresolved))
	return res, nil
}

func (s *ChatService) deliver(ctx context.Context, callerID string, t ComposeTarget, text string) (*model.MessageView, error) {
	if t.Kind == TargetChannel {
		return s.PostChannelMessage(ctx, callerID, t.ChannelID, text)
	}
	thread, err := s.GetOrCreateDM(ctx, callerID, t.UserID)
	if err != nil {
		return nil, err
	}
	return s.PostDM(ctx, callerID, thread.ID, text)
}

func deliveryError(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not found"
	}
	return "delivery failed"
}

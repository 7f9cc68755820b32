package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/model"
)

// GetOrCreateDM opens the thread between the caller and otherID. Writing to yourself is allowed.
func (s *ChatService) GetOrCreateDM(ctx context.Context, callerID, otherID string) (*model.DMThreadView, error) {
	defer logger.DeferLogDuration("service.GetOrCreateDM", time.Now())()
	if otherID == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, fmt.Errorf("service.GetOrCreateDM: %w", err)
	}
	t, created, err := s.dms.GetOrCreate(ctx, callerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("service.GetOrCreateDM: %w", err)
	}
	view, err := s.dmView(ctx, t)
	if err != nil {
		return nil, err
	}
	if created {
		s.notifyUsers(t.Participants, model.EventDMCreated, view)
	}
	return view, nil
}

func (s *ChatService) ListDMs(ctx context.Context, callerID string) ([]model.DMThreadView, error) {
	defer logger.DeferLogDuration("service.ListDMs", time.Now())()
	threads, err := s.dms.ListForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("service.ListDMs: %w", err)
	}
	var ids []string
	for _, t := range threads {
		ids = append(ids, t.Participants...)
	}
	ids, _ = model.MergeIDs(nil, ids)
	members, err := s.members(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service.ListDMs: %w", err)
	}
	byID := make(map[string]model.UserPublic, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	out := make([]model.DMThreadView, 0, len(threads))
	for _, t := range threads {
		v := model.DMThreadView{DMThread: t, Members: make([]model.UserPublic, 0, len(t.Participants))}
		for _, id := range t.Participants {
			v.Members = append(v.Members, byID[id])
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *ChatService) dmView(ctx context.Context, t *model.DMThread) (*model.DMThreadView, error) {
	members, err := s.members(ctx, t.Participants)
	if err != nil {
		return nil, fmt.Errorf("service.dmView: %w", err)
	}
	return &model.DMThreadView{DMThread: *t, Members: members}, nil
}

func (s *ChatService) participantDM(ctx context.Context, callerID, threadID string) (*model.DMThread, error) {
	t, err := s.dms.GetByID(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("service.dm %s: %w", threadID, err)
	}
	for _, id := range t.Participants {
		if id == callerID {
			return t, nil
		}
	}
	return nil, ErrForbidden
}

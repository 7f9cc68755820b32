package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/push"
	"github.com/chatbubble/internal/reaction"
	"github.com/chatbubble/internal/storage/memory"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	order []string
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*model.User{}}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
		f.order = append(f.order, u.ID)
	}
	return f
}

func (f *fakeUsers) Ensure(_ context.Context, u *model.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; ok {
		return false, nil
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.order = append(f.order, u.ID)
	return true, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		if strings.EqualFold(f.byID[id].Email, email) {
			cp := *f.byID[id]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUsers) FindByName(_ context.Context, name string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, id := range f.order {
		if strings.EqualFold(f.byID[id].Name, name) {
			out = append(out, *f.byID[id])
		}
	}
	return out, nil
}

func (f *fakeUsers) ListAll(_ context.Context, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, id := range f.order {
		if len(out) == limit {
			break
		}
		out = append(out, *f.byID[id])
	}
	return out, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID, name, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.Name, u.AvatarURL = name, avatarURL
	return nil
}

func (f *fakeUsers) SetPresence(_ context.Context, userID string, p model.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.Presence = p
	return nil
}

type fakeChannels struct {
	mu   sync.Mutex
	byID map[string]*model.Channel
}

func newFakeChannels() *fakeChannels { return &fakeChannels{byID: map[string]*model.Channel{}} }

func (f *fakeChannels) Create(_ context.Context, c *model.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.byID {
		if strings.EqualFold(other.Name, c.Name) {
			return ErrConflict
		}
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeChannels) GetByID(_ context.Context, id string) (*model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp, nil
}

func (f *fakeChannels) GetByName(ctx context.Context, name string) (*model.Channel, error) {
	f.mu.Lock()
	var id string
	for _, c := range f.byID {
		if strings.EqualFold(c.Name, name) {
			id = c.ID
		}
	}
	f.mu.Unlock()
	if id == "" {
		return nil, ErrNotFound
	}
	return f.GetByID(ctx, id)
}

func (f *fakeChannels) ListForUser(_ context.Context, userID string) ([]model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Channel
	for _, c := range f.byID {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeChannels) UpdateMeta(_ context.Context, id, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Name, c.Description = name, description
	return nil
}

func (f *fakeChannels) AddParticipants(_ context.Context, id string, userIDs []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	var added []string
	c.Participants, added = model.MergeIDs(c.Participants, userIDs)
	return added, nil
}

func (f *fakeChannels) RemoveParticipant(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	for i, p := range c.Participants {
		if p == userID {
			c.Participants = append(c.Participants[:i:i], c.Participants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs map[string][]*model.Message
}

func newFakeMessages() *fakeMessages { return &fakeMessages{msgs: map[string][]*model.Message{}} }

func (f *fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs[m.ParentID] = append(f.msgs[m.ParentID], &cp)
	return nil
}

func (f *fakeMessages) find(parentID, id string) *model.Message {
	for _, m := range f.msgs[parentID] {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (f *fakeMessages) GetByID(_ context.Context, parentID, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(parentID, id)
	if m == nil {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) List(_ context.Context, parentID string, limit int, cur model.Cursor) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Message
	for _, m := range f.msgs[parentID] {
		if cur.Older(*m) {
			all = append(all, *m)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp != all[j].Timestamp {
			return all[i].Timestamp < all[j].Timestamp
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeMessages) UpdateText(_ context.Context, parentID, id, text string, editedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(parentID, id)
	if m == nil {
		return ErrNotFound
	}
	m.Text = text
	m.EditedAt = &editedAt
	return nil
}

func (f *fakeMessages) ToggleReaction(_ context.Context, parentID, id, reactionType, userID string) (model.ReactionMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(parentID, id)
	if m == nil {
		return nil, ErrNotFound
	}
	m.Reactions = reaction.Toggle(m.Reactions, reactionType, userID)
	return m.Reactions, nil
}

func (f *fakeMessages) Stats(_ context.Context, parentIDs []string) (map[string]model.ThreadStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]model.ThreadStats{}
	for _, id := range parentIDs {
		list := f.msgs[id]
		if len(list) == 0 {
			continue
		}
		st := model.ThreadStats{Count: len(list)}
		for _, m := range list {
			if m.Timestamp > st.LastAnswerAt {
				st.LastAnswerAt = m.Timestamp
			}
		}
		out[id] = st
	}
	return out, nil
}

type fakeDMs struct {
	mu      sync.Mutex
	threads map[string]*model.DMThread
}

func newFakeDMs() *fakeDMs { return &fakeDMs{threads: map[string]*model.DMThread{}} }

func (f *fakeDMs) GetOrCreate(_ context.Context, a, b string) (*model.DMThread, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := model.DMKey(a, b)
	if t, ok := f.threads[key]; ok {
		cp := *t
		return &cp, false, nil
	}
	ids, _ := model.MergeIDs(nil, []string{a, b})
	t := &model.DMThread{ID: key, Participants: ids, CreatedAt: time.Now()}
	f.threads[key] = t
	cp := *t
	return &cp, true, nil
}

func (f *fakeDMs) GetByID(_ context.Context, id string) (*model.DMThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeDMs) ListForUser(_ context.Context, userID string) ([]model.DMThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DMThread
	for _, t := range f.threads {
		for _, p := range t.Participants {
			if p == userID {
				out = append(out, *t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type event struct {
	Topic   string
	Users   []string
	Type    model.EventType
	Payload any
}

type fakePublisher struct {
	mu           sync.Mutex
	events       []event
	revoked      []string
	disconnected []string
}

func (p *fakePublisher) Publish(topic string, t model.EventType, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{Topic: topic, Type: t, Payload: payload})
}

func (p *fakePublisher) NotifyUsers(ids []string, t model.EventType, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{Users: append([]string(nil), ids...), Type: t, Payload: payload})
}

func (p *fakePublisher) Revoke(userID, topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, userID+" "+topic)
}

func (p *fakePublisher) DisconnectUser(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, userID)
}

func (p *fakePublisher) byType(t model.EventType) []event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []push.Notification
	fails atomic.Bool
}

func (n *fakeNotifier) Enabled() bool { return true }

func (n *fakeNotifier) Notify(_ context.Context, msg push.Notification) error {
	if n.fails.Load() {
		return context.DeadlineExceeded
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	svc      *ChatService
	users    *fakeUsers
	channels *fakeChannels
	chats    *fakeMessages
	answers  *fakeMessages
	dms      *fakeDMs
	dmMsgs   *fakeMessages
	presence *memory.Client
	pub      *fakePublisher
	notifier *fakeNotifier
}

var (
	alice = model.User{ID: "u-alice", Name: "Alice Smith", Email: "alice@example.com", AvatarURL: "/api/avatars/a.png"}
	bob   = model.User{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}
	carol = model.User{ID: "u-carol", Name: "Carol van Dijk", Email: "carol@example.com"}
)

func newFixture() *fixture {
	f := &fixture{
		users:    newFakeUsers(alice, bob, carol),
		channels: newFakeChannels(),
		chats:    newFakeMessages(),
		answers:  newFakeMessages(),
		dms:      newFakeDMs(),
		dmMsgs:   newFakeMessages(),
		presence: memory.New(),
		pub:      &fakePublisher{},
		notifier: &fakeNotifier{},
	}
	f.svc = New(Deps{
		Users:      f.users,
		Channels:   f.channels,
		Chats:      f.chats,
		Answers:    f.answers,
		DMs:        f.dms,
		DMMessages: f.dmMsgs,
		Presence:   f.presence,
		Publisher:  f.pub,
		Notifier:   f.notifier,
	})
	var seq atomic.Int64
	f.svc.newID = func() string { return "id-" + strconv.FormatInt(seq.Add(1), 10) }
	clock := time.Unix(1_700_000_000, 0)
	var tick atomic.Int64
	f.svc.now = func() time.Time { return clock.Add(time.Duration(tick.Add(1)) * time.Second) }
	return f
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbubble/internal/config"
	"github.com/chatbubble/internal/fileserver"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
	"github.com/chatbubble/internal/push"
	"github.com/chatbubble/internal/service"
)

// fakeChat overrides the calls a test needs; anything else panics through the nil interface.
type fakeChat struct {
	ChatService

	identity   middleware.Identity
	lastText   string
	lastLimit  int
	lastCursor model.Cursor
	err        error
	profile    model.UserPublic
}

func (f *fakeChat) EnsureProfile(_ context.Context, id middleware.Identity) (*model.User, error) {
	f.identity = id
	return &model.User{ID: id.UserID, Name: id.Name, Presence: model.PresenceOnline}, f.err
}

func (f *fakeChat) Logout(context.Context, string) error { return f.err }

func (f *fakeChat) GetUser(_ context.Context, id string) (model.UserPublic, error) {
	if f.err != nil {
		return model.UserPublic{}, f.err
	}
	return model.UserPublic{ID: id, Name: "Alice"}, nil
}

func (f *fakeChat) UpdateProfile(_ context.Context, callerID, targetID, name, avatarURL string) (model.UserPublic, error) {
	f.profile = model.UserPublic{ID: targetID, Name: name, AvatarURL: avatarURL}
	return f.profile, f.err
}

func (f *fakeChat) CreateChannel(_ context.Context, callerID, name, _ string, ids []string) (*model.ChannelView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChannelView{Channel: model.Channel{ID: "c1", Name: name, Participants: append([]string{callerID}, ids...)}}, nil
}

func (f *fakeChat) ListChannels(context.Context, string) ([]model.Channel, error) { return nil, f.err }

func (f *fakeChat) ListChannelMessages(_ context.Context, _, channelID string, limit int, cur model.Cursor) ([]model.MessageView, error) {
	f.lastLimit, f.lastCursor = limit, cur
	if f.err != nil {
		return nil, f.err
	}
	return []model.MessageView{{ID: "m1", ParentID: channelID, Scope: model.ScopeChannel}}, nil
}

func (f *fakeChat) PostAnswer(_ context.Context, _, _, chatID, text string) (*model.MessageView, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return &model.MessageView{ID: "a1", ParentID: chatID, Text: text, Scope: model.ScopeThread}, nil
}

func (f *fakeChat) ToggleDMReaction(_ context.Context, callerID, _, _, reactionType string) ([]model.ReactionView, error) {
	return []model.ReactionView{{Type: reactionType, Count: 1, UserIDs: []string{callerID}, CurrentUserReacted: true}}, f.err
}

func (f *fakeChat) Compose(_ context.Context, _, recipients, text string) (*service.ComposeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &service.ComposeResult{}
	if strings.Contains(recipients, "@") {
		res.Delivered = append(res.Delivered, service.ComposeTarget{Kind: service.TargetUser, Name: "Bob"})
	}
	return res, nil
}

type fakeSubscriber struct {
	subs []push.Subscription
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ string, sub push.Subscription) error {
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubscriber) Unsubscribe(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T, svc ChatService) (http.Handler, *fileserver.Service) {
	t.Helper()
	avatars := fileserver.New(t.TempDir(), 1<<16)
	h := &Handlers{
		Users:    NewUserHandler(svc, avatars),
		Channels: NewChannelHandler(svc),
		Messages: NewMessageHandler(svc),
		DMs:      NewDMHandler(svc),
		Push:     NewPushHandler(&fakeSubscriber{}),
		Config:   NewConfigHandler(&config.Config{}),
	}
	r := chi.NewRouter()
	h.Mount(r, middleware.DevAuth)
	return r, avatars
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Name", "Alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartSessionPassesIdentity(t *testing.T) {
	svc := &fakeChat{}
	r, _ := newTestRouter(t, svc)
	rec := do(t, r, http.MethodPost, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", svc.identity.UserID)
	assert.Equal(t, "Alice", svc.identity.Name)

	rec = do(t, r, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		r, _ := newTestRouter(t, &fakeChat{err: tt.err})
		rec := do(t, r, http.MethodPost, "/api/channels", `{"name":"general"}`)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
		assert.NotContains(t, body.Error, "boom")
	}
}

func TestCreateChannel(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := do(t, r, http.MethodPost, "/api/channels", `{"name":"general","participant_ids":["u2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view model.ChannelView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, []string{"u1", "u2"}, view.Participants)

	rec = do(t, r, http.MethodPost, "/api/channels", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpointsReturnArrays(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := do(t, r, http.MethodGet, "/api/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestChannelMessagesPaging(t *testing.T) {
	svc := &fakeChat{}
	r, _ := newTestRouter(t, svc)
	rec := do(t, r, http.MethodGet, "/api/channels/c1/chats?limit=20&before=1700000000&before_id=m9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, svc.lastLimit)
	assert.Equal(t, model.Cursor{Before: 1700000000, BeforeID: "m9"}, svc.lastCursor)

	var views []model.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "c1", views[0].ParentID)
}

func TestPostAnswer(t *testing.T) {
	svc := &fakeChat{}
	r, _ := newTestRouter(t, svc)
	rec := do(t, r, http.MethodPost, "/api/channels/c1/chats/m1/answers", `{"text":"on it"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "on it", svc.lastText)
	var view model.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "m1", view.ParentID)
}

func TestToggleDMReaction(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := do(t, r, http.MethodPost, "/api/dms/u1_u2/messages/m1/reactions", `{"type":"heart"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []model.ReactionView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.True(t, views[0].CurrentUserReacted)
}

func TestCompose(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := do(t, r, http.MethodPost, "/api/compose", `{"recipients":"@Bob","text":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/compose", `{"recipients":"#nowhere","text":"hi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPushSubscribeValidates(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := do(t, r, http.MethodPost, "/api/push/subscribe", `{"subscription":{"endpoint":"https://push.example/1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/push/subscribe",
		`{"subscription":{"endpoint":"https://push.example/1","keys":{"p256dh":"k","auth":"a"}}}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPushConfigDisabled(t *testing.T) {
	r, _ := newTestRouter(t, &fakeChat{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/push", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestAvatarUploadAndServe(t *testing.T) {
	svc := &fakeChat{}
	r, _ := newTestRouter(t, svc)

	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{1}, 600)...)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, strings.HasPrefix(svc.profile.AvatarURL, fileserver.URLPrefix))
	assert.Equal(t, "Alice", svc.profile.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, svc.profile.AvatarURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/avatars/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWSCheckOrigin(t *testing.T) {
	h := NewWSHandler(nil, []string{"https://chat.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(req), "no origin header")
	req.Header.Set("Origin", "https://chat.example")
	assert.True(t, h.checkOrigin(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.checkOrigin(req))

	assert.True(t, NewWSHandler(nil, []string{"*"}).checkOrigin(req))
}

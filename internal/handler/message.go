package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
)

type TextRequest struct {
	Text string `json:"text"`
}

type ReactionRequest struct {
	Type string `json:"type"`
}

// MessageHandler serves channel chats, thread answers and DM messages.
type MessageHandler struct {
	svc ChatService
}

func NewMessageHandler(svc ChatService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func writeViews(w http.ResponseWriter, r *http.Request, views []model.MessageView, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []model.MessageView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func writeView(w http.ResponseWriter, r *http.Request, status int, view *model.MessageView, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

func writeReactions(w http.ResponseWriter, r *http.Request, views []model.ReactionView, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []model.ReactionView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *MessageHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListChannelMessages(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), queryInt(r, "limit", 0), queryCursor(r))
	writeViews(w, r, views, err)
}

func (h *MessageHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.PostChannelMessage(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Text)
	writeView(w, r, http.StatusCreated, view, err)
}

func (h *MessageHandler) EditChat(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.EditChannelMessage(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), req.Text)
	writeView(w, r, http.StatusOK, view, err)
}

func (h *MessageHandler) ToggleChatReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	views, err := h.svc.ToggleChannelReaction(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), req.Type)
	writeReactions(w, r, views, err)
}

func (h *MessageHandler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListAnswers(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), queryInt(r, "limit", 0), queryCursor(r))
	writeViews(w, r, views, err)
}

func (h *MessageHandler) PostAnswer(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.PostAnswer(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), req.Text)
	writeView(w, r, http.StatusCreated, view, err)
}

func (h *MessageHandler) EditAnswer(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.EditAnswer(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), chi.URLParam(r, "answerId"), req.Text)
	writeView(w, r, http.StatusOK, view, err)
}

func (h *MessageHandler) ToggleAnswerReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	views, err := h.svc.ToggleAnswerReaction(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "chatId"), chi.URLParam(r, "answerId"), req.Type)
	writeReactions(w, r, views, err)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
)

type DMHandler struct {
	svc ChatService
}

func NewDMHandler(svc ChatService) *DMHandler {
	return &DMHandler{svc: svc}
}

type OpenDMRequest struct {
	UserID string `json:"user_id"`
}

func (h *DMHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListDMs(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.DMThreadView{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Open returns the thread with the given user, creating it on first use.
func (h *DMHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenDMRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.GetOrCreateDM(r.Context(), middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DMHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListDMMessages(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), queryInt(r, "limit", 0), queryCursor(r))
	writeViews(w, r, views, err)
}

func (h *DMHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.PostDM(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Text)
	writeView(w, r, http.StatusCreated, view, err)
}

func (h *DMHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.EditDM(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "messageId"), req.Text)
	writeView(w, r, http.StatusOK, view, err)
}

func (h *DMHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var req ReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	views, err := h.svc.ToggleDMReaction(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "messageId"), req.Type)
	writeReactions(w, r, views, err)
}

type ComposeRequest struct {
	Recipients string `json:"recipients"`
	Text       string `json:"text"`
}

// Compose sends one text to every recipient listed in the "to" field.
func (h *DMHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Compose(r.Context(), middleware.GetUserID(r.Context()), req.Recipients, req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if len(res.Delivered) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

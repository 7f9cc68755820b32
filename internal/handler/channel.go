package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
)

type ChannelHandler struct {
	svc ChatService
}

func NewChannelHandler(svc ChatService) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

type ChannelRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participant_ids"`
}

type ParticipantsRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListChannels(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Channel{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.CreateChannel(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Description, req.ParticipantIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.UpdateChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ChannelHandler) AddParticipants(w http.ResponseWriter, r *http.Request) {
	var req ParticipantsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.AddParticipants(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.UserIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ChannelHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LeaveChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

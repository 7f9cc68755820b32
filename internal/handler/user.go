package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatbubble/internal/fileserver"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/model"
)

type UserHandler struct {
	svc     ChatService
	avatars *fileserver.Service
}

func NewUserHandler(svc ChatService, avatars *fileserver.Service) *UserHandler {
	return &UserHandler{svc: svc, avatars: avatars}
}

// StartSession создаёт профиль при первом входе и отмечает пользователя online.
func (h *UserHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.EnsureProfile(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())
	user, err := h.svc.UpdateProfile(r.Context(), userID, userID, req.Name, req.AvatarURL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type PresenceRequest struct {
	Presence model.Presence `json:"presence"`
}

func (h *UserHandler) SetPresence(w http.ResponseWriter, r *http.Request) {
	var req PresenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetPresence(r.Context(), middleware.GetUserID(r.Context()), req.Presence); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAvatar принимает multipart с полем "file", сохраняет картинку и ставит её в профиль.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.avatars.MaxUploadSize+64<<10)
	if err := r.ParseMultipartForm(h.avatars.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	url, err := h.avatars.Save(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, fileserver.ErrNotImage), errors.Is(err, fileserver.ErrMismatch), errors.Is(err, fileserver.ErrTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Errorf("UploadAvatar: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	userID := middleware.GetUserID(r.Context())
	cur, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), userID, userID, cur.Name, url)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.avatars.Open(chi.URLParam(r, "filename"))
	if errors.Is(err, fileserver.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		logger.Errorf("ServeAvatar: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.Debugf("ServeAvatar copy: %v", err)
	}
}

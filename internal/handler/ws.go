package handler

import (
	"net/http"
	"strings"

	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/ws"
)

type WSHandler struct {
	hub            *ws.Hub
	allowedOrigins []string
}

// NewWSHandler создаёт обработчик WebSocket. allowedOrigins — как в CORS; "*" пускает всех.
func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{hub: hub, allowedOrigins: allowedOrigins}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.checkOrigin(r) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := h.hub.Serve(w, r, userID, h.checkOrigin); err != nil {
		logger.Errorf("ws upgrade user=%s: %v", userID, err)
	}
}

package handler

import (
	"net/http"

	"github.com/chatbubble/internal/config"
)

// ConfigHandler отдаёт публичные параметры конфигурации.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type PushConfigResponse struct {
	Enabled        bool   `json:"enabled"`
	VAPIDPublicKey string `json:"vapid_public_key,omitempty"`
}

// GetPushConfig возвращает публичный VAPID-ключ для подписки на пуши (если включены).
func (h *ConfigHandler) GetPushConfig(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Push.ServiceURL == "" || h.cfg.Push.VAPIDPublicKey == "" {
		writeJSON(w, http.StatusOK, PushConfigResponse{})
		return
	}
	writeJSON(w, http.StatusOK, PushConfigResponse{Enabled: true, VAPIDPublicKey: h.cfg.Push.VAPIDPublicKey})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

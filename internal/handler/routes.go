package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Users    *UserHandler
	Channels *ChannelHandler
	Messages *MessageHandler
	DMs      *DMHandler
	Push     *PushHandler
	Config   *ConfigHandler
	WS       *WSHandler
}

// Mount вешает маршруты API на r. auth ставит user_id в контекст (AuthServiceValidate или DevAuth).
func (h *Handlers) Mount(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/health", Health)
	if h.Config != nil {
		r.Get("/api/config/push", h.Config.GetPushConfig)
	}
	r.Get("/api/avatars/{filename}", h.Users.ServeAvatar)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/api/session", h.Users.StartSession)
		r.Delete("/api/session", h.Users.EndSession)

		r.Get("/api/users", h.Users.GetUsers)
		r.Put("/api/users/me", h.Users.UpdateMe)
		r.Put("/api/users/me/presence", h.Users.SetPresence)
		r.Post("/api/users/me/avatar", h.Users.UploadAvatar)
		r.Get("/api/users/{id}", h.Users.GetUser)

		r.Get("/api/channels", h.Channels.List)
		r.Post("/api/channels", h.Channels.Create)
		r.Route("/api/channels/{id}", func(r chi.Router) {
			r.Get("/", h.Channels.Get)
			r.Put("/", h.Channels.Update)
			r.Post("/participants", h.Channels.AddParticipants)
			r.Post("/leave", h.Channels.Leave)

			r.Get("/chats", h.Messages.ListChats)
			r.Post("/chats", h.Messages.PostChat)
			r.Put("/chats/{chatId}", h.Messages.EditChat)
			r.Post("/chats/{chatId}/reactions", h.Messages.ToggleChatReaction)
			r.Get("/chats/{chatId}/answers", h.Messages.ListAnswers)
			r.Post("/chats/{chatId}/answers", h.Messages.PostAnswer)
			r.Put("/chats/{chatId}/answers/{answerId}", h.Messages.EditAnswer)
			r.Post("/chats/{chatId}/answers/{answerId}/reactions", h.Messages.ToggleAnswerReaction)
		})

		r.Get("/api/dms", h.DMs.List)
		r.Post("/api/dms", h.DMs.Open)
		r.Get("/api/dms/{id}/messages", h.DMs.ListMessages)
		r.Post("/api/dms/{id}/messages", h.DMs.Post)
		r.Put("/api/dms/{id}/messages/{messageId}", h.DMs.Edit)
		r.Post("/api/dms/{id}/messages/{messageId}/reactions", h.DMs.ToggleReaction)

		r.Post("/api/compose", h.DMs.Compose)

		if h.Push != nil {
			r.Post("/api/push/subscribe", h.Push.Subscribe)
			r.Delete("/api/push/subscribe", h.Push.Unsubscribe)
		}
		if h.WS != nil {
			r.Get("/ws", h.WS.ServeWS)
		}
	})
}

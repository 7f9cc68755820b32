package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// Serve upgrades the request and attaches the connection to userID.
// checkOrigin may be nil to accept any origin.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, checkOrigin func(*http.Request) bool) error {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(h, conn, userID)
	client.Start(ctx, cancel)
	h.Register(client)
	return nil
}

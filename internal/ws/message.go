package ws

import "github.com/chatbubble/internal/model"

// IncomingMessage is what the client sends: subscribe/unsubscribe/typing carry a topic,
// presence carries the new state.
type IncomingMessage struct {
	Type     model.EventType `json:"type"`
	Topic    string          `json:"topic,omitempty"`
	Presence model.Presence  `json:"presence,omitempty"`
}

// OutgoingMessage is what the server sends. Topic is set for events
// delivered through a subscription and empty for per-user events.
type OutgoingMessage struct {
	Type    model.EventType `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload any             `json:"payload"`
}

// TypingPayload is relayed to the other subscribers of a topic.
type TypingPayload struct {
	UserID string `json:"user_id"`
}

// ErrorPayload answers a client event that could not be handled.
type ErrorPayload struct {
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message"`
}

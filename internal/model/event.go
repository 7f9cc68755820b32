package model

import "strings"

type EventType string

const (
	EventSubscribe        EventType = "subscribe"
	EventUnsubscribe      EventType = "unsubscribe"
	EventTyping           EventType = "typing"
	EventPresence         EventType = "presence"
	EventMessageCreated   EventType = "message_created"
	EventMessageEdited    EventType = "message_edited"
	EventReactionsChanged EventType = "reactions_changed"
	EventChannelCreated   EventType = "channel_created"
	EventChannelUpdated   EventType = "channel_updated"
	EventParticipantsAdd  EventType = "participants_added"
	EventParticipantLeft  EventType = "participant_left"
	EventDMCreated        EventType = "dm_created"
	EventUserUpdated      EventType = "user_updated"
	EventPresenceChanged  EventType = "presence_changed"
	EventMention          EventType = "mention"
	EventError            EventType = "error"
)

// Topics are document paths clients subscribe to.
const TopicUsers = "users"

func ChannelTopic(channelID string) string { return "channels/" + channelID }

func ChannelChatsTopic(channelID string) string { return "channels/" + channelID + "/chats" }

func AnswersTopic(channelID, chatID string) string {
	return "channels/" + channelID + "/chats/" + chatID + "/answers"
}

func DMMessagesTopic(threadID string) string { return "dmChats/" + threadID + "/messages" }

// ParseTopic splits a topic into its collection kind and ids.
// kind is one of "users", "channel", "chats", "answers", "dm"; ok is false for unknown paths.
func ParseTopic(topic string) (kind string, ids []string, ok bool) {
	parts := strings.Split(topic, "/")
	for _, p := range parts {
		if p == "" {
			return "", nil, false
		}
	}
	switch {
	case len(parts) == 1 && parts[0] == TopicUsers:
		return "users", nil, true
	case len(parts) == 2 && parts[0] == "channels":
		return "channel", []string{parts[1]}, true
	case len(parts) == 3 && parts[0] == "channels" && parts[2] == "chats":
		return "chats", []string{parts[1]}, true
	case len(parts) == 5 && parts[0] == "channels" && parts[2] == "chats" && parts[4] == "answers":
		return "answers", []string{parts[1], parts[3]}, true
	case len(parts) == 3 && parts[0] == "dmChats" && parts[2] == "messages":
		return "dm", []string{parts[1]}, true
	}
	return "", nil, false
}

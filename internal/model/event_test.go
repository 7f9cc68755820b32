package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic string
		kind  string
		ids   []string
		ok    bool
	}{
		{TopicUsers, "users", nil, true},
		{ChannelTopic("c1"), "channel", []string{"c1"}, true},
		{ChannelChatsTopic("c1"), "chats", []string{"c1"}, true},
		{AnswersTopic("c1", "m1"), "answers", []string{"c1", "m1"}, true},
		{DMMessagesTopic("a_b"), "dm", []string{"a_b"}, true},
		{"channels//chats", "", nil, false},
		{"dmChats/a_b", "", nil, false},
		{"something/else", "", nil, false},
	}
	for _, tt := range tests {
		kind, ids, ok := ParseTopic(tt.topic)
		assert.Equal(t, tt.ok, ok, tt.topic)
		assert.Equal(t, tt.kind, kind, tt.topic)
		assert.Equal(t, tt.ids, ids, tt.topic)
	}
}

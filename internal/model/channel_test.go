package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeIDs(t *testing.T) {
	merged, added := MergeIDs([]string{"a", "b", "a"}, []string{"c", "", "b", "c", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, merged)
	assert.Equal(t, []string{"c", "d"}, added)

	merged, added = MergeIDs(nil, nil)
	assert.Empty(t, merged)
	assert.Nil(t, added)
}

func TestHasParticipant(t *testing.T) {
	c := &Channel{Participants: []string{"u1", "u2"}}
	assert.True(t, c.HasParticipant("u2"))
	assert.False(t, c.HasParticipant("u3"))
}

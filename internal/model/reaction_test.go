package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionMapDecodesLegacyShapes(t *testing.T) {
	raw := `{"thumbs_up":["u1","u2"],"rocket":"u3","party":null,"eyes":"","heart":["u1,u2"]}`

	var m ReactionMap
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, ReactionUsers{"u1", "u2"}, m["thumbs_up"])
	assert.Equal(t, ReactionUsers{"u3"}, m["rocket"])
	assert.Nil(t, m["party"])
	assert.Nil(t, m["eyes"])
	assert.Equal(t, ReactionUsers{"u1,u2"}, m["heart"])
}

func TestReactionMapRejectsGarbage(t *testing.T) {
	var m ReactionMap
	assert.Error(t, json.Unmarshal([]byte(`{"x":42}`), &m))
}

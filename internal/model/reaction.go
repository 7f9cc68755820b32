package model

import (
	"encoding/json"
	"fmt"
)

// ReactionMap maps a reaction type (emoji or icon id) to the ids of users who reacted.
type ReactionMap map[string]ReactionUsers

// ReactionUsers accepts both the array form and the legacy single-string form on decode.
type ReactionUsers []string

func (u *ReactionUsers) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*u = nil
		} else {
			*u = ReactionUsers{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("reaction users: %w", err)
	}
	*u = many
	return nil
}

// ReactionView is the display form of one reaction type.
type ReactionView struct {
	Type               string   `json:"type"`
	Count              int      `json:"count"`
	UserIDs            []string `json:"user_ids"`
	CurrentUserReacted bool     `json:"current_user_reacted"`
	OtherUserReacted   bool     `json:"other_user_reacted"`
	OtherUserName      string   `json:"other_user_name,omitempty"`
}

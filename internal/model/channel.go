package model

import "time"

type Channel struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatedBy    string    `json:"created_by"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is in the participant set.
func (c *Channel) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelView is a channel with participants resolved for display.
type ChannelView struct {
	Channel
	Members []UserPublic `json:"members"`
}

// MergeIDs appends the ids from add that are not yet in cur. Empty ids and
// duplicates inside add are skipped. It returns the merged set and the ids
// that were actually added, both in first-seen order.
func MergeIDs(cur, add []string) (merged, added []string) {
	seen := make(map[string]struct{}, len(cur)+len(add))
	merged = make([]string, 0, len(cur)+len(add))
	for _, id := range cur {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range add {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
		added = append(added, id)
	}
	return merged, added
}

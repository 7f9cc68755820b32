package model

import (
	"sort"
	"strings"
	"time"
)

// DMThread is a direct-message conversation between two users (or one user with themselves).
type DMThread struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// DMThreadView is a DM thread with participants resolved for display.
type DMThreadView struct {
	DMThread
	Members []UserPublic `json:"members"`
}

// DMKey returns the thread id for two users; the argument order does not matter.
func DMKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

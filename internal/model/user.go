package model

import "time"

type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
	PresenceIdle    Presence = "idle"
)

// Valid reports whether p is one of the known presence states.
func (p Presence) Valid() bool {
	switch p {
	case PresenceOnline, PresenceOffline, PresenceIdle:
		return true
	}
	return false
}

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatar_url"`
	Presence   Presence  `json:"presence"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UserPublic struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url"`
	Presence  Presence `json:"presence"`
	// Former is set for ids that no longer resolve to a user record.
	Former bool `json:"former,omitempty"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Presence:  u.Presence,
	}
}

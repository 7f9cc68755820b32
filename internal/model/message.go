package model

// Scope tells which collection a message lives in.
type Scope string

const (
	ScopeChannel Scope = "channel" // channels/{id}/chats/{id}
	ScopeThread  Scope = "thread"  // channels/{id}/chats/{id}/answers/{id}
	ScopeDM      Scope = "dm"      // dmChats/{id}/messages/{id}
)

// Message is the shared shape of channel chats, thread answers and DM messages.
// Timestamps are epoch seconds.
type Message struct {
	ID        string      `json:"id"`
	ParentID  string      `json:"parent_id"`
	Text      string      `json:"text"`
	AuthorID  string      `json:"author_id"`
	Timestamp int64       `json:"timestamp"`
	EditedAt  *int64      `json:"edited_at,omitempty"`
	Reactions ReactionMap `json:"reactions"`
}

// Cursor is a paging position: a page holds messages strictly older than
// (Before, BeforeID) in (timestamp, id) order. Zero Before means the newest page;
// an empty BeforeID pages by timestamp alone.
type Cursor struct {
	Before   int64  `json:"before,omitempty"`
	BeforeID string `json:"before_id,omitempty"`
}

// Older reports whether m sorts strictly before the cursor.
func (c Cursor) Older(m Message) bool {
	if c.Before <= 0 {
		return true
	}
	if m.Timestamp != c.Before {
		return m.Timestamp < c.Before
	}
	return c.BeforeID != "" && m.ID < c.BeforeID
}

// ThreadStats summarises the answers under a channel message.
type ThreadStats struct {
	Count        int   `json:"answer_count"`
	LastAnswerAt int64 `json:"last_answer_at,omitempty"`
}

// MessageView is a message joined with its author and normalized reactions.
type MessageView struct {
	ID           string         `json:"id"`
	Scope        Scope          `json:"scope"`
	ParentID     string         `json:"parent_id"`
	Text         string         `json:"text"`
	AuthorID     string         `json:"author_id"`
	AuthorName   string         `json:"author_name"`
	AuthorAvatar string         `json:"author_avatar"`
	AuthorFormer bool           `json:"author_former,omitempty"`
	Timestamp    int64          `json:"timestamp"`
	EditedAt     *int64         `json:"edited_at,omitempty"`
	Reactions    []ReactionView `json:"reactions"`
	Thread       *ThreadStats   `json:"thread,omitempty"`
}

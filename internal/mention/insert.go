// Package mention inserts and extracts @user, #channel and e-mail mentions in message text.
package mention

import (
	"regexp"
	"unicode/utf8"
)

type EntityType string

const (
	EntityUser    EntityType = "user"
	EntityChannel EntityType = "channel"
	EntityEmail   EntityType = "email"
)

// Trigger returns the character that starts a mention of this type.
func (t EntityType) Trigger() string {
	switch t {
	case EntityUser:
		return "@"
	case EntityChannel:
		return "#"
	}
	return ""
}

// Entity is what the user picked from the mention suggestion list.
type Entity struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// CaretEnd places the caret at the end of the text.
const CaretEnd = -1

var (
	partialTokenRe = regexp.MustCompile(`([@#])([^\s]*)$`)
	partialWordRe  = regexp.MustCompile(`([^\s]*)$`)
)

// Insert replaces the partial mention token that ends at caret with the picked entity
// followed by one space. caret counts runes; negative or out of range means end of text.
// It returns the new text and the caret position right after the inserted space.
func Insert(text string, caret int, e Entity) (string, int) {
	runes := []rune(text)
	if caret < 0 || caret > len(runes) {
		caret = len(runes)
	}
	before := string(runes[:caret])
	after := string(runes[caret:])

	re := partialTokenRe
	if e.Type == EntityEmail {
		re = partialWordRe
	}
	prefix := before
	if loc := re.FindStringIndex(before); loc != nil {
		prefix = before[:loc[0]]
	}

	head := prefix + e.Type.Trigger() + e.Name
	return head + " " + after, utf8.RuneCountInString(head) + 1
}

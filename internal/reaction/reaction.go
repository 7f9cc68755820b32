// Package reaction normalizes and toggles the reaction maps stored on messages.
package reaction

import (
	"sort"
	"strings"

	"github.com/chatbubble/internal/model"
)

// UnknownName is shown when another reactor cannot be resolved to a user.
const UnknownName = "Unbekannt"

// NameResolver looks up display names by user id.
type NameResolver interface {
	DisplayName(userID string) (string, bool)
}

// Directory is a NameResolver backed by a map of id to display name.
type Directory map[string]string

func (d Directory) DisplayName(userID string) (string, bool) {
	name, ok := d[userID]
	return name, ok && name != ""
}

// DirectoryFromUsers indexes users by id.
func DirectoryFromUsers(users []model.User) Directory {
	d := make(Directory, len(users))
	for i := range users {
		d[users[i].ID] = users[i].Name
	}
	return d
}

// SplitIDs splits comma-joined entries, trims them and drops empties and duplicates.
// First-seen order is kept.
func SplitIDs(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Canonical returns a copy of m with every list split and de-duplicated and empty keys removed.
func Canonical(m model.ReactionMap) model.ReactionMap {
	out := make(model.ReactionMap, len(m))
	for typ, users := range m {
		ids := SplitIDs(users)
		if len(ids) == 0 {
			continue
		}
		out[typ] = ids
	}
	return out
}

// Normalize turns a reaction map into display views sorted by reaction type.
// names may be nil, in which case every other reactor is unknown.
func Normalize(m model.ReactionMap, currentUserID string, names NameResolver) []model.ReactionView {
	types := make([]string, 0, len(m))
	for typ := range m {
		types = append(types, typ)
	}
	sort.Strings(types)

	views := make([]model.ReactionView, 0, len(types))
	for _, typ := range types {
		ids := SplitIDs(m[typ])
		if len(ids) == 0 {
			continue
		}
		v := model.ReactionView{Type: typ, Count: len(ids), UserIDs: ids}
		others := 0
		for _, id := range ids {
			if id == currentUserID {
				v.CurrentUserReacted = true
				continue
			}
			others++
			if others > 1 {
				continue
			}
			v.OtherUserName = UnknownName
			if names != nil {
				if name, ok := names.DisplayName(id); ok {
					v.OtherUserName = name
				}
			}
		}
		v.OtherUserReacted = others > 1
		views = append(views, v)
	}
	return views
}

// FromViews rebuilds a reaction map from its views.
func FromViews(views []model.ReactionView) model.ReactionMap {
	out := make(model.ReactionMap, len(views))
	for _, v := range views {
		if len(v.UserIDs) == 0 {
			continue
		}
		out[v.Type] = append(model.ReactionUsers(nil), v.UserIDs...)
	}
	return out
}

// Toggle adds userID to the reaction list or removes it when already present.
// A list left empty is deleted from the map. m is not modified.
func Toggle(m model.ReactionMap, reactionType, userID string) model.ReactionMap {
	out := Canonical(m)
	ids := out[reactionType]
	kept := make(model.ReactionUsers, 0, len(ids)+1)
	removed := false
	for _, id := range ids {
		if id == userID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		kept = append(kept, userID)
	}
	if len(kept) == 0 {
		delete(out, reactionType)
		return out
	}
	out[reactionType] = kept
	return out
}

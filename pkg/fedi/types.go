package fedi

// User is a person discovered on the network.
//
// ID is unique only within the namespace of the server that issued it.
// Cross-server identity comparisons must use Handle.BaseKey, never ID.
type User struct {
	ID     string `json:"id"`
	Avatar string `json:"avatar"`
	Bot    bool   `json:"bot"`
	Name   string `json:"name"`
	Handle Handle `json:"handle"`
}

// Note is a single post.
//
// Instance records which server's API must be used to fetch this note's
// reactions, boosts, and replies; replies discovered through a thread
// endpoint may live on a different server than the root note. Author is
// populated for notes coming out of a reply tree and for the subject's own
// notes; it may be nil otherwise.
type Note struct {
	ID          string `json:"id"`
	Replies     uint   `json:"replies"`
	Renotes     uint   `json:"renotes"`
	Favorites   uint   `json:"favorites"`
	ExtraReacts bool   `json:"extra_reacts"`
	Instance    string `json:"instance"`
	Author      *User  `json:"author,omitempty"`
}

// RatedUser is a User with an accumulated interaction weight. The strength
// only ever grows during a circle computation; it is never reset.
type RatedUser struct {
	User
	ConnectionStrength float64 `json:"connection_strength"`
}

// MergeUsers unions simple-favorite and extended-reaction user sets into one
// list without duplicates. The set is seeded with all simple users; an
// extended user is appended only if its id is not already present, so a
// person who both favorited and emoji-reacted counts once. Output order is
// insertion order (simple first), which keeps the result deterministic.
func MergeUsers(simple, extended []User) []User {
	seen := make(map[string]bool, len(simple)+len(extended))
	merged := make([]User, 0, len(simple)+len(extended))

	for _, u := range simple {
		if !seen[u.ID] {
			seen[u.ID] = true
			merged = append(merged, u)
		}
	}
	for _, u := range extended {
		if !seen[u.ID] {
			seen[u.ID] = true
			merged = append(merged, u)
		}
	}
	return merged
}

// Package misskey implements the RPC-shaped backend family (Misskey and its
// forks: Calckey, Foundkey, Magnetar, Firefish, Sharkey).
//
// Every operation is a POST with a JSON body carrying a limit; there is no
// cursor pagination. Reactions are first-class on this family, so the
// reactions endpoint already covers both the simple and the extended case.
package misskey

import (
	"context"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

// Ensure Client satisfies the backend contract.
var _ backend.Client = (*Client)(nil)

// Client talks to a single Misskey-family instance.
type Client struct {
	*backend.HTTPClient
	baseURL  string
	instance string
}

// New creates a client for the given instance domain.
func New(instance string) *Client {
	return &Client{
		HTTPClient: backend.NewHTTPClient(nil),
		baseURL:    "https://" + instance,
		instance:   instance,
	}
}

// Name identifies the backend family.
func (c *Client) Name() string { return "misskey" }

// FetchUser resolves a handle in two steps: search-by-username-and-host to
// find the exact account id, then users/show for the full record. The show
// call falls back to the bare username when the search found nothing.
func (c *Client) FetchUser(ctx context.Context, handle fedi.Handle) (*fedi.User, error) {
	var matches []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Host     string `json:"host"`
	}
	err := c.PostJSON(ctx, c.baseURL+"/api/users/search-by-username-and-host", map[string]any{
		"username": handle.Name,
		"host":     nil,
	}, &matches)
	if err != nil {
		// The search is an optimization; users/show below can still succeed.
		matches = nil
	}

	show := map[string]any{"username": handle.Name}
	for _, m := range matches {
		if m.Host == handle.Instance && m.Username == handle.Name {
			show = map[string]any{"id": m.ID, "username": handle.Name}
			break
		}
	}

	var u rpcUser
	if err := c.PostJSON(ctx, c.baseURL+"/api/users/show", show, &u); err != nil {
		return nil, err
	}

	return &fedi.User{
		ID:     u.ID,
		Avatar: u.AvatarURL,
		Bot:    u.IsBot,
		Name:   u.Name,
		Handle: handle,
	}, nil
}

// FetchNotes returns the user's recent original notes in a single request.
func (c *Client) FetchNotes(ctx context.Context, user *fedi.User) ([]fedi.Note, error) {
	var raw []rpcNote
	err := c.PostJSON(ctx, c.baseURL+"/api/users/notes", map[string]any{
		"userId": user.ID,
		"limit":  backend.NotesTarget,
		"reply":  false,
		"renote": false,
	}, &raw)
	if err != nil {
		return nil, err
	}

	notes := make([]fedi.Note, 0, len(raw))
	for _, n := range raw {
		note := c.mapNote(n, c.instance)
		note.Author = user
		notes = append(notes, note)
	}
	return notes, nil
}

// FetchBoosters returns users who renoted the note.
func (c *Client) FetchBoosters(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	var renotes []struct {
		User rpcUser `json:"user"`
	}
	err := c.PostJSON(ctx, c.baseURL+"/api/notes/renotes", map[string]any{
		"noteId": note.ID,
		"limit":  backend.BoostersTarget,
	}, &renotes)
	if err != nil {
		return nil, err
	}

	users := make([]fedi.User, 0, len(renotes))
	for _, r := range renotes {
		users = append(users, c.mapUser(r.User))
	}
	return users, nil
}

// FetchReplies returns the note's direct replies with Author populated.
func (c *Client) FetchReplies(ctx context.Context, note fedi.Note) ([]fedi.Note, error) {
	var raw []rpcNote
	err := c.PostJSON(ctx, c.baseURL+"/api/notes/replies", map[string]any{
		"noteId": note.ID,
		"limit":  backend.RepliesTarget,
	}, &raw)
	if err != nil {
		return nil, err
	}

	replies := make([]fedi.Note, 0, len(raw))
	for _, n := range raw {
		author := c.mapUser(n.User)
		reply := c.mapNote(n, author.Handle.Instance)
		reply.Author = &author
		replies = append(replies, reply)
	}
	return replies, nil
}

// FetchSimpleReactions returns users who reacted to the note. On this family
// every reaction is an emoji reaction, so this single endpoint stands in for
// the favorite list of the REST-shaped backends.
func (c *Client) FetchSimpleReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	var reactions []struct {
		User rpcUser `json:"user"`
	}
	err := c.PostJSON(ctx, c.baseURL+"/api/notes/reactions", map[string]any{
		"noteId": note.ID,
		"limit":  backend.ReactionsTarget,
	}, &reactions)
	if err != nil {
		return nil, err
	}

	users := make([]fedi.User, 0, len(reactions))
	for _, r := range reactions {
		users = append(users, c.mapUser(r.User))
	}
	return users, nil
}

// FetchExtendedReactions is always empty: the reactions endpoint already
// reports emoji reactions, there is no second reaction surface to merge.
func (c *Client) FetchExtendedReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	return []fedi.User{}, nil
}

// FetchReactions consolidates the (single) reaction surface, de-duplicating
// users who reacted with several emojis.
func (c *Client) FetchReactions(ctx context.Context, note fedi.Note, wantExtended bool) ([]fedi.User, error) {
	simple, err := c.FetchSimpleReactions(ctx, note)
	if err != nil {
		return nil, err
	}
	return fedi.MergeUsers(simple, nil), nil
}

func (c *Client) mapUser(u rpcUser) fedi.User {
	instance := u.Host
	if instance == "" {
		// Local users carry a null host.
		instance = c.instance
	}
	return fedi.User{
		ID:     u.ID,
		Avatar: u.AvatarURL,
		Bot:    u.IsBot,
		Name:   u.Name,
		Handle: fedi.ParseHandle(u.Username, instance),
	}
}

// mapNote converts a raw note, folding the per-emoji reaction tallies into
// the favorites count.
func (c *Client) mapNote(n rpcNote, instance string) fedi.Note {
	var favs uint
	for _, count := range n.Reactions {
		favs += count
	}
	return fedi.Note{
		ID:        n.ID,
		Replies:   n.RepliesCount,
		Renotes:   n.RenoteCount,
		Favorites: favs,
		Instance:  instance,
	}
}

type rpcUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Host      string `json:"host"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	IsBot     bool   `json:"isBot"`
}

type rpcNote struct {
	ID           string          `json:"id"`
	RepliesCount uint            `json:"repliesCount"`
	RenoteCount  uint            `json:"renoteCount"`
	Reactions    map[string]uint `json:"reactions"`
	User         rpcUser         `json:"user"`
}

// Probe checks whether the server behind baseURL answers the Misskey meta
// RPC. Detection uses this as a heuristic when the nodeinfo document is
// unreachable.
func Probe(ctx context.Context, c *backend.HTTPClient, baseURL string) bool {
	var meta map[string]any
	return c.PostJSON(ctx, baseURL+"/api/meta", nil, &meta) == nil
}

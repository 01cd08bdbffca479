// Package mastodon implements the REST-shaped backend family.
//
// Three flavors share one wire protocol and differ only in their extended
// reaction support: plain Mastodon has none, Fedibird exposes
// emoji_reactioned_by, Pleroma/Akkoma expose the pleroma reactions
// endpoint. The flavors are a closed tag set dispatched in
// FetchExtendedReactions; everything else is shared.
package mastodon

import (
	"context"
	"fmt"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

// Flavor selects which extended-reaction dialect an instance speaks.
type Flavor int

const (
	FlavorMastodon Flavor = iota
	FlavorFedibird
	FlavorPleroma
)

// String returns the backend family name for the flavor.
func (f Flavor) String() string {
	switch f {
	case FlavorFedibird:
		return "fedibird"
	case FlavorPleroma:
		return "pleroma"
	default:
		return "mastodon"
	}
}

// Requests are paginated via the Link header at this page size; the Mastodon
// API caps most list endpoints at 40 per request.
const pageSize = 40

// Ensure Client satisfies the backend contract.
var _ backend.Client = (*Client)(nil)

// Client talks to a single REST-shaped instance.
type Client struct {
	*backend.HTTPClient
	baseURL     string
	instance    string
	flavor      Flavor
	emojiReacts bool
}

// New creates a client for the given instance domain.
//
// emojiReacts marks whether the instance declared the extended-reaction
// capability; it is only consulted for the Fedibird and Pleroma flavors.
func New(instance string, flavor Flavor, emojiReacts bool) *Client {
	return &Client{
		HTTPClient:  backend.NewHTTPClient(nil),
		baseURL:     "https://" + instance,
		instance:    instance,
		flavor:      flavor,
		emojiReacts: emojiReacts,
	}
}

// Name identifies the backend family.
func (c *Client) Name() string { return c.flavor.String() }

// FetchUser resolves the handle through the account lookup endpoint.
func (c *Client) FetchUser(ctx context.Context, handle fedi.Handle) (*fedi.User, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/lookup?acct=%s", c.baseURL, handle.String())

	var acct account
	if err := c.GetJSON(ctx, url, &acct); err != nil {
		return nil, err
	}

	return &fedi.User{
		ID:     acct.ID,
		Avatar: acct.Avatar,
		Bot:    acct.Bot,
		Name:   acct.DisplayName,
		Handle: handle,
	}, nil
}

// FetchNotes returns the user's recent original notes, paginated up to the
// notes target.
func (c *Client) FetchNotes(ctx context.Context, user *fedi.User) ([]fedi.Note, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/%s/statuses?exclude_replies=true&exclude_reblogs=true&limit=%d",
		c.baseURL, user.ID, pageSize)

	statuses, err := backend.FetchPaged[status](ctx, c.HTTPClient, url, backend.NotesTarget, pageSize, true)
	if err != nil {
		return nil, err
	}

	notes := make([]fedi.Note, 0, len(statuses))
	for _, s := range statuses {
		note := c.mapStatus(s, c.instance)
		note.Author = user
		notes = append(notes, note)
	}
	return notes, nil
}

// FetchBoosters returns users who renoted the note.
func (c *Client) FetchBoosters(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/reblogged_by?limit=%d", c.baseURL, note.ID, pageSize)

	accounts, err := backend.FetchPaged[account](ctx, c.HTTPClient, url, backend.BoostersTarget, pageSize, true)
	if err != nil {
		return nil, err
	}
	return c.mapAccounts(accounts, note.Instance), nil
}

// FetchReplies returns the note's descendants from the context endpoint,
// with Author populated on every reply.
func (c *Client) FetchReplies(ctx context.Context, note fedi.Note) ([]fedi.Note, error) {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/context", c.baseURL, note.ID)

	var thread struct {
		Descendants []status `json:"descendants"`
	}
	if err := c.GetJSON(ctx, url, &thread); err != nil {
		return nil, err
	}

	replies := make([]fedi.Note, 0, len(thread.Descendants))
	for _, s := range thread.Descendants {
		handle := fedi.ParseHandle(s.Account.Acct, note.Instance)
		reply := c.mapStatus(s, handle.Instance)
		reply.Author = &fedi.User{
			ID:     s.Account.ID,
			Avatar: s.Account.Avatar,
			Bot:    s.Account.Bot,
			Name:   s.Account.DisplayName,
			Handle: handle,
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// FetchSimpleReactions returns users who favorited the note.
func (c *Client) FetchSimpleReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/favourited_by?limit=%d", c.baseURL, note.ID, pageSize)

	accounts, err := backend.FetchPaged[account](ctx, c.HTTPClient, url, backend.ReactionsTarget, pageSize, true)
	if err != nil {
		return nil, err
	}
	return c.mapAccounts(accounts, note.Instance), nil
}

// FetchExtendedReactions returns users who emoji-reacted to the note.
// Plain Mastodon, and instances that did not declare the capability,
// return an empty result.
func (c *Client) FetchExtendedReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	if !c.emojiReacts {
		return []fedi.User{}, nil
	}

	switch c.flavor {
	case FlavorPleroma:
		return c.pleromaReactions(ctx, note)
	case FlavorFedibird:
		return c.fedibirdReactions(ctx, note)
	default:
		return []fedi.User{}, nil
	}
}

// FetchReactions unions favorites and, when requested and available,
// extended emoji reactions into one de-duplicated user set.
func (c *Client) FetchReactions(ctx context.Context, note fedi.Note, wantExtended bool) ([]fedi.User, error) {
	simple, err := c.FetchSimpleReactions(ctx, note)
	if err != nil {
		return nil, err
	}
	if !wantExtended || !c.emojiReacts {
		return simple, nil
	}

	extended, err := c.FetchExtendedReactions(ctx, note)
	if err != nil {
		// Favorites were already retrieved; a failing extended fetch only
		// loses the emoji reactors.
		return simple, nil
	}
	return fedi.MergeUsers(simple, extended), nil
}

// pleromaReactions reads the pleroma reactions endpoint, which groups
// reacting accounts per emoji.
func (c *Client) pleromaReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	url := fmt.Sprintf("%s/api/v1/pleroma/statuses/%s/reactions", c.baseURL, note.ID)

	var reactions []struct {
		Accounts []account `json:"accounts"`
	}
	if err := c.GetJSON(ctx, url, &reactions); err != nil {
		return nil, err
	}

	var users []fedi.User
	for _, r := range reactions {
		users = append(users, c.mapAccounts(r.Accounts, note.Instance)...)
	}
	return users, nil
}

// fedibirdReactions reads the fedibird per-reaction endpoint, one entry per
// account and emoji.
func (c *Client) fedibirdReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error) {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/emoji_reactioned_by", c.baseURL, note.ID)

	var reactions []struct {
		Account account `json:"account"`
	}
	if err := c.GetJSON(ctx, url, &reactions); err != nil {
		return nil, err
	}

	users := make([]fedi.User, 0, len(reactions))
	for _, r := range reactions {
		users = append(users, c.mapAccount(r.Account, note.Instance))
	}
	return users, nil
}

func (c *Client) mapAccount(a account, fallbackInstance string) fedi.User {
	return fedi.User{
		ID:     a.ID,
		Avatar: a.Avatar,
		Bot:    a.Bot,
		Name:   a.DisplayName,
		Handle: fedi.ParseHandle(a.Acct, fallbackInstance),
	}
}

func (c *Client) mapAccounts(accounts []account, fallbackInstance string) []fedi.User {
	users := make([]fedi.User, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, c.mapAccount(a, fallbackInstance))
	}
	return users
}

// mapStatus converts a raw status into the common note shape. The instance
// parameter records which server's API serves this note's interactions.
func (c *Client) mapStatus(s status, instance string) fedi.Note {
	return fedi.Note{
		ID:          s.ID,
		Replies:     s.RepliesCount,
		Renotes:     s.ReblogsCount,
		Favorites:   s.FavouritesCount,
		ExtraReacts: len(s.Pleroma.EmojiReactions) > 0 || len(s.EmojiReactions) > 0,
		Instance:    instance,
	}
}

// account is the wire shape shared by all REST-family account payloads.
// acct is the bare username for local accounts and name@host for remote
// ones, so mapping always goes through ParseHandle with a fallback.
type account struct {
	ID          string `json:"id"`
	Acct        string `json:"acct"`
	Avatar      string `json:"avatar"`
	Bot         bool   `json:"bot"`
	DisplayName string `json:"display_name"`
}

// status is the wire shape of a note. The emoji-reaction markers are
// optional extensions: pleroma.emoji_reactions on Pleroma/Akkoma,
// top-level emoji_reactions on Fedibird. Absent fields decode to their
// zero values, which read as "no extended reactions".
type status struct {
	ID              string  `json:"id"`
	RepliesCount    uint    `json:"replies_count"`
	ReblogsCount    uint    `json:"reblogs_count"`
	FavouritesCount uint    `json:"favourites_count"`
	Account         account `json:"account"`
	EmojiReactions  []struct {
		Count uint `json:"count"`
	} `json:"emoji_reactions"`
	Pleroma struct {
		EmojiReactions []struct {
			Count uint `json:"count"`
		} `json:"emoji_reactions"`
	} `json:"pleroma"`
}

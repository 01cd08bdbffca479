// Package backend defines the capability contract shared by all instance
// software families and the HTTP plumbing their adapters are built on.
//
// Four families are supported: Mastodon (the default), Fedibird and
// Pleroma/Akkoma (REST-shaped variants with extended emoji reactions), and
// Misskey (RPC-shaped). The concrete adapters live in the mastodon and
// misskey subpackages; detection and construction live in the detect
// subpackage.
package backend

import (
	"context"

	"github.com/pmerten/fedicircle/pkg/fedi"
)

// Target counts per fetch. These bound the total request volume of a circle
// computation; they do not guarantee completeness.
const (
	NotesTarget     = 70
	BoostersTarget  = 50
	ReactionsTarget = 100
	RepliesTarget   = 100
)

// Client is the capability contract every backend family satisfies.
//
// A non-nil error from any fetch means the request failed and that feature
// contributes nothing for the note at hand; it never aborts the whole
// computation. An empty slice with a nil error means the feature succeeded
// but found nobody, including the case of a backend that simply lacks the
// capability (extended reactions on plain Mastodon).
type Client interface {
	// Name identifies the backend family ("mastodon", "pleroma", ...).
	Name() string

	// FetchUser resolves a handle to the user as seen by this instance.
	FetchUser(ctx context.Context, handle fedi.Handle) (*fedi.User, error)

	// FetchNotes returns the user's most recent original notes, excluding
	// replies and renotes, up to NotesTarget.
	FetchNotes(ctx context.Context, user *fedi.User) ([]fedi.Note, error)

	// FetchBoosters returns users who renoted the note, up to BoostersTarget.
	FetchBoosters(ctx context.Context, note fedi.Note) ([]fedi.User, error)

	// FetchReplies returns the note's descendants with Author populated.
	FetchReplies(ctx context.Context, note fedi.Note) ([]fedi.Note, error)

	// FetchSimpleReactions returns users who favorited the note, up to
	// ReactionsTarget.
	FetchSimpleReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error)

	// FetchExtendedReactions returns users who emoji-reacted to the note.
	// Backends without the capability return an empty result and no error.
	FetchExtendedReactions(ctx context.Context, note fedi.Note) ([]fedi.User, error)

	// FetchReactions consolidates simple and extended reactions into one
	// de-duplicated user set. Extended reactions are only requested when
	// wantExtended is set and the backend has the capability.
	FetchReactions(ctx context.Context, note fedi.Note, wantExtended bool) ([]fedi.User, error)
}

// Package circle turns a handle into a ranked social circle: it resolves
// the subject, detects their instance's software family, walks the recent
// notes, and scores every person who interacted with them.
package circle

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

// ScoreTable accumulates interaction weights per discovered user, keyed by
// the server-local user id. It lives for exactly one circle computation.
type ScoreTable map[string]*fedi.RatedUser

// NewScoreTable creates an empty table.
func NewScoreTable() ScoreTable {
	return make(ScoreTable)
}

// Add increments a user's connection strength, inserting them with strength
// zero first if needed. Bot accounts are never inserted or incremented.
func (t ScoreTable) Add(user fedi.User, weight float64) {
	if user.Bot {
		return
	}
	rated, ok := t[user.ID]
	if !ok {
		rated = &fedi.RatedUser{User: user}
		t[user.ID] = rated
	}
	rated.ConnectionStrength += weight
}

// Scorer applies the interaction weights of one note at a time to a
// ScoreTable.
type Scorer struct {
	weights config.Weights
	logger  *log.Logger
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(weights config.Weights, logger *log.Logger) *Scorer {
	if logger == nil {
		logger = log.Default()
	}
	return &Scorer{weights: weights, logger: logger}
}

// ScoreNote fetches the note's reactions, boosts, and replies through the
// client and adds their weights to the table. The three fetches run
// sequentially to bound the outbound request rate. A failing fetch is
// logged and contributes nothing; it never stops the remaining features or
// notes.
func (s *Scorer) ScoreNote(ctx context.Context, client backend.Client, table ScoreTable, note fedi.Note) {
	if note.Favorites > 0 || note.ExtraReacts {
		users, err := client.FetchReactions(ctx, note, note.ExtraReacts)
		if err != nil {
			s.logger.Debug("reaction fetch failed", "note", note.ID, "err", err)
		}
		for _, u := range users {
			table.Add(u, s.weights.Reaction)
		}
	}

	if note.Renotes > 0 {
		users, err := client.FetchBoosters(ctx, note)
		if err != nil {
			s.logger.Debug("booster fetch failed", "note", note.ID, "err", err)
		}
		for _, u := range users {
			table.Add(u, s.weights.Boost)
		}
	}

	replies, err := client.FetchReplies(ctx, note)
	if err != nil {
		s.logger.Debug("reply fetch failed", "note", note.ID, "err", err)
	}
	for _, reply := range replies {
		if reply.Author != nil {
			table.Add(*reply.Author, s.weights.Reply)
		}
	}
}

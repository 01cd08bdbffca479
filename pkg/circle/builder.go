package circle

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/backend/detect"
	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
	"github.com/pmerten/fedicircle/pkg/webfinger"
)

// Progress reports per-note processing progress through a side channel.
// done counts processed notes out of total. The callback runs on the
// pipeline's goroutine; keep it cheap.
type Progress func(done, total int)

// Result is what the pipeline hands to a renderer: the resolved subject and
// the full ranking, already partitioned into bands.
type Result struct {
	Subject *fedi.User       `json:"subject"`
	Backend string           `json:"backend"`
	Ranked  []fedi.RatedUser `json:"ranked"`
	Bands   Banded           `json:"bands"`
}

// ClientSource hands out backend clients per instance domain.
// *detect.Registry is the production implementation.
type ClientSource interface {
	Client(ctx context.Context, domain string) backend.Client
	Forced(domain, family string) backend.Client
}

// HandleResolver upgrades a typed handle to its canonical form.
// *webfinger.Resolver is the production implementation.
type HandleResolver interface {
	Resolve(ctx context.Context, handle fedi.Handle) fedi.Handle
}

// Builder runs the whole circle pipeline. Construct one per process; the
// detection registry inside it memoizes per instance domain.
type Builder struct {
	registry ClientSource
	resolver HandleResolver
	cfg      config.Config
	logger   *log.Logger
	progress Progress
}

// NewBuilder creates a Builder. registry and resolver may be nil for
// defaults; logger may be nil to use the package default.
func NewBuilder(registry ClientSource, resolver HandleResolver, cfg config.Config, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	if registry == nil {
		registry = detect.NewRegistry(nil, logger)
	}
	if resolver == nil {
		resolver = webfinger.NewResolver(logger)
	}
	return &Builder{
		registry: registry,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnProgress registers a progress callback for note processing.
func (b *Builder) OnProgress(p Progress) { b.progress = p }

// Build computes the circle for a raw handle string.
//
// forcedFamily skips instance detection when non-empty ("mastodon",
// "pleroma", "fedibird", "misskey"); pass "" for auto-detection. Only two
// failures are fatal: the subject not resolving to a user, and the initial
// notes fetch failing. Everything downstream degrades per note.
func (b *Builder) Build(ctx context.Context, rawHandle, forcedFamily string) (*Result, error) {
	handle := fedi.ParseHandle(rawHandle, "")
	if handle.Name == "" || handle.Instance == "" {
		return nil, fmt.Errorf("handle %q: want name@instance", rawHandle)
	}

	handle = b.resolver.Resolve(ctx, handle)
	b.logger.Debug("handle resolved", "handle", handle.String(), "base", handle.Base(), "api", handle.APIHost())

	var client backend.Client
	if forcedFamily != "" {
		client = b.registry.Forced(handle.APIHost(), forcedFamily)
	} else {
		client = b.registry.Client(ctx, handle.APIHost())
	}
	b.logger.Info("instance detected", "instance", handle.APIHost(), "family", client.Name())

	subject, err := client.FetchUser(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", handle.String(), err)
	}

	notes, err := client.FetchNotes(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("fetching notes of %s: %w", handle.String(), err)
	}
	b.logger.Info("notes fetched", "count", len(notes))

	table := NewScoreTable()
	b.processNotes(ctx, client, table, notes)

	ranked := Rank(table, subject)
	return &Result{
		Subject: subject,
		Backend: client.Name(),
		Ranked:  ranked,
		Bands:   Partition(ranked, b.cfg.Bands),
	}, nil
}

// processNotes walks the notes strictly sequentially. Each note's feature
// fetches are themselves sequential, which bounds the simultaneous request
// rate against third-party servers at one.
func (b *Builder) processNotes(ctx context.Context, client backend.Client, table ScoreTable, notes []fedi.Note) {
	scorer := NewScorer(b.cfg.Weights, b.logger)

	for i, note := range notes {
		if ctx.Err() != nil {
			b.logger.Warn("note processing cancelled", "processed", i, "total", len(notes))
			return
		}
		scorer.ScoreNote(ctx, client, table, note)
		if b.progress != nil {
			b.progress(i+1, len(notes))
		}
	}
}

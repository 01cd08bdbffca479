// Package detect classifies which software family an instance runs and
// constructs the matching backend client.
//
// Classification follows the nodeinfo discovery chain and falls back to the
// default family (plain Mastodon, no extended reactions) whenever a step
// fails. Results are memoized per domain in a Registry that callers thread
// explicitly; there is no package-level cache.
package detect

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/backend/mastodon"
	"github.com/pmerten/fedicircle/pkg/backend/misskey"
	"github.com/pmerten/fedicircle/pkg/cache"
)

// Nodeinfo schema links, newest first.
var nodeinfoRels = []string{
	"http://nodeinfo.diaspora.software/ns/schema/2.1",
	"http://nodeinfo.diaspora.software/ns/schema/2.0",
}

// Software names of the Misskey family, matched as substrings of the
// case-folded declared name.
var misskeyNames = []string{"misskey", "calckey", "foundkey", "magnetar", "firefish", "sharkey"}

// How long a shared store keeps a detection result. The in-process memo
// ignores this and lives for the whole process.
const storeTTL = 24 * time.Hour

// Result is the serializable outcome of a detection, sufficient to
// reconstruct a client without re-probing.
type Result struct {
	Family      string `json:"family"`
	EmojiReacts bool   `json:"emoji_reacts"`
}

// Registry memoizes detection per instance domain for the lifetime of the
// process, with an optional shared second-level store behind it. Construct
// one per run (or one per server) and pass it around explicitly.
type Registry struct {
	mu      sync.Mutex
	clients map[string]backend.Client
	store   cache.Cache
	http    *backend.HTTPClient
	logger  *log.Logger

	// baseURL overrides https://<domain> for tests.
	baseURL func(domain string) string
}

// NewRegistry creates a Registry. store may be nil to keep detection purely
// in-process.
func NewRegistry(store cache.Cache, logger *log.Logger) *Registry {
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		clients: make(map[string]backend.Client),
		store:   store,
		http:    backend.NewHTTPClient(nil),
		logger:  logger,
		baseURL: func(domain string) string { return "https://" + domain },
	}
}

// Client returns the backend client for the given instance domain,
// detecting the software family on first use. Detection never fails: every
// failure path classifies the instance as the default family.
func (r *Registry) Client(ctx context.Context, domain string) backend.Client {
	r.mu.Lock()
	if c, ok := r.clients[domain]; ok {
		r.mu.Unlock()
		return c
	}
	r.mu.Unlock()

	result := r.lookup(ctx, domain)
	client := r.build(domain, result)

	r.mu.Lock()
	// A concurrent detection of the same domain may have won; keep the
	// first entry so all callers share one client.
	if existing, ok := r.clients[domain]; ok {
		client = existing
	} else {
		r.clients[domain] = client
	}
	r.mu.Unlock()

	return client
}

// Forced returns a client for an explicitly chosen family, bypassing
// detection, and memoizes it like a detected one. Unknown names fall back
// to the default family.
func (r *Registry) Forced(domain, family string) backend.Client {
	var result Result
	switch family {
	case "misskey":
		result = Result{Family: "misskey"}
	case "pleroma":
		result = Result{Family: "pleroma", EmojiReacts: true}
	case "fedibird":
		result = Result{Family: "fedibird", EmojiReacts: true}
	default:
		result = Result{Family: "mastodon"}
	}

	client := r.build(domain, result)
	r.mu.Lock()
	r.clients[domain] = client
	r.mu.Unlock()
	return client
}

// lookup consults the shared store before running a full detection.
func (r *Registry) lookup(ctx context.Context, domain string) Result {
	if data, ok, err := r.store.Get(ctx, domain); err == nil && ok {
		var result Result
		if json.Unmarshal(data, &result) == nil && result.Family != "" {
			r.logger.Debug("instance family from shared store", "instance", domain, "family", result.Family)
			return result
		}
	}

	result := r.detect(ctx, domain)

	if data, err := json.Marshal(result); err == nil {
		_ = r.store.Set(ctx, domain, data, storeTTL)
	}
	return result
}

// detect runs the discovery chain against the instance.
func (r *Registry) detect(ctx context.Context, domain string) Result {
	fallback := Result{Family: "mastodon"}
	base := r.baseURL(domain)

	var nodeinfo struct {
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := r.http.GetJSON(ctx, base+"/.well-known/nodeinfo", &nodeinfo); err != nil || len(nodeinfo.Links) == 0 {
		r.logger.Debug("nodeinfo discovery unavailable, assuming default family", "instance", domain)
		return fallback
	}

	href := ""
	for _, rel := range nodeinfoRels {
		for _, link := range nodeinfo.Links {
			if link.Rel == rel {
				href = link.Href
				break
			}
		}
		if href != "" {
			break
		}
	}
	if href == "" {
		r.logger.Debug("no supported nodeinfo schema link", "instance", domain)
		return fallback
	}

	var doc struct {
		Software struct {
			Name string `json:"name"`
		} `json:"software"`
		Metadata struct {
			Features []string `json:"features"`
		} `json:"metadata"`
	}
	if err := r.http.GetJSON(ctx, href, &doc); err != nil {
		// The linked document is unreachable; guess from API endpoints.
		if misskey.Probe(ctx, r.http, base) {
			r.logger.Debug("nodeinfo document unreachable, meta probe matched misskey", "instance", domain)
			return Result{Family: "misskey"}
		}
		r.logger.Debug("nodeinfo document unreachable, assuming default family", "instance", domain)
		return fallback
	}

	return classify(doc.Software.Name, doc.Metadata.Features)
}

// classify maps a declared software name and feature list onto a family.
// Precedence: the rebranded default (fedibird), the Misskey family, the
// pleroma_api feature flag, a pleroma/akkoma name without a feature list,
// then the default.
func classify(name string, features []string) Result {
	name = strings.ToLower(name)

	if strings.Contains(name, "fedibird") {
		return Result{Family: "fedibird", EmojiReacts: true}
	}

	for _, n := range misskeyNames {
		if strings.Contains(name, n) {
			return Result{Family: "misskey"}
		}
	}

	hasFeature := func(want string) bool {
		for _, f := range features {
			if f == want {
				return true
			}
		}
		return false
	}
	if hasFeature("pleroma_api") {
		return Result{Family: "pleroma", EmojiReacts: hasFeature("pleroma_emoji_reactions")}
	}
	if strings.Contains(name, "pleroma") || strings.Contains(name, "akkoma") {
		return Result{Family: "pleroma", EmojiReacts: true}
	}

	return Result{Family: "mastodon"}
}

// build constructs the concrete client for a detection result.
func (r *Registry) build(domain string, result Result) backend.Client {
	switch result.Family {
	case "misskey":
		return misskey.New(domain)
	case "pleroma":
		return mastodon.New(domain, mastodon.FlavorPleroma, result.EmojiReacts)
	case "fedibird":
		return mastodon.New(domain, mastodon.FlavorFedibird, result.EmojiReacts)
	default:
		return mastodon.New(domain, mastodon.FlavorMastodon, false)
	}
}

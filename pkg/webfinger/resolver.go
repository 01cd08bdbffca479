// Package webfinger resolves a handle's canonical identity through the
// well-known webfinger endpoint.
package webfinger

import (
	"context"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

const (
	relSelf        = "self"
	relProfilePage = "http://webfinger.net/rel/profile-page"
)

// Resolver enriches handles with their canonical base instance, the host
// serving the API, and the profile page.
type Resolver struct {
	http   *backend.HTTPClient
	logger *log.Logger

	// baseURL overrides https://<domain> for tests.
	baseURL func(domain string) string
}

// NewResolver creates a Resolver.
func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		http:    backend.NewHTTPClient(nil),
		logger:  logger,
		baseURL: func(domain string) string { return "https://" + domain },
	}
}

type response struct {
	Subject string `json:"subject"`
	Links   []struct {
		Rel  string `json:"rel"`
		Type string `json:"type"`
		Href string `json:"href"`
	} `json:"links"`
}

// Resolve enriches the handle through a webfinger lookup against its typed
// instance. An already-resolved handle is returned unchanged, as is the
// original handle on any request or payload failure: resolution must never
// abort the pipeline.
//
// The returned handle keeps the typed instance as the displayable one; the
// discovered account becomes the canonical name and base instance. A parse
// failure of an individual link only leaves that field unset.
func (r *Resolver) Resolve(ctx context.Context, handle fedi.Handle) fedi.Handle {
	if handle.Resolved() || handle.Instance == "" {
		return handle
	}

	endpoint := r.baseURL(handle.Instance) + "/.well-known/webfinger?resource=acct:" + url.QueryEscape(handle.String())

	var resp response
	if err := r.http.GetJSON(ctx, endpoint, &resp); err != nil {
		r.logger.Debug("webfinger lookup failed", "handle", handle.String(), "err", err)
		return handle
	}
	if resp.Subject == "" {
		r.logger.Debug("webfinger response without subject", "handle", handle.String())
		return handle
	}

	canonical := fedi.ParseHandle(strings.TrimPrefix(resp.Subject, "acct:"), handle.Instance)

	resolved := fedi.Handle{
		Name: canonical.Name,
		// The instance the user typed stays the one they see.
		Instance:     handle.Instance,
		BaseInstance: canonical.Instance,
	}

	for _, link := range resp.Links {
		switch link.Rel {
		case relSelf:
			if host := hostOf(link.Href); host != "" {
				resolved.APIInstance = host
			}
		case relProfilePage:
			if link.Href != "" {
				resolved.ProfileURL = link.Href
			}
		}
	}

	return resolved
}

// hostOf extracts the host from a link target, or "" when the link does not
// parse. An unparsable link is not an error; the field just stays unset.
func hostOf(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Host
}

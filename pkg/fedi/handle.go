// Package fedi defines the shared data model for federated social networks:
// handles, users, notes, and the pure helpers operating on them. Nothing in
// this package performs I/O.
package fedi

import "strings"

// Handle identifies a person as name@instance.
//
// Instance is the instance as the user typed it and stays the displayable
// one. BaseInstance and APIInstance are filled in by webfinger resolution:
// BaseInstance is the canonical home server, APIInstance the host API calls
// should be issued against (often the same, but not always). Both are empty
// on an unresolved handle. Resolution produces a new Handle value; a Handle
// is never mutated in place.
type Handle struct {
	Name         string `json:"name"`
	Instance     string `json:"instance"`
	BaseInstance string `json:"base_instance,omitempty"`
	APIInstance  string `json:"api_instance,omitempty"`
	ProfileURL   string `json:"profile_url,omitempty"`
}

// ParseHandle parses a raw name@instance string into a Handle.
//
// A leading "@" and any embedded whitespace are stripped. The part after the
// first "@" becomes the instance; if there is none, fallbackInstance is used.
// ParseHandle never fails: a missing instance with an empty fallback yields
// an empty Instance, which downstream resolution treats as unresolved.
func ParseHandle(raw, fallbackInstance string) Handle {
	raw = strings.TrimPrefix(raw, "@")
	raw = strings.ReplaceAll(raw, " ", "")

	name, instance, found := strings.Cut(raw, "@")
	if !found || instance == "" {
		instance = fallbackInstance
	}

	return Handle{Name: name, Instance: instance}
}

// String formats the handle as name@instance using the displayable instance.
func (h Handle) String() string {
	return h.Name + "@" + h.Instance
}

// Resolved reports whether the handle has been enriched with its canonical
// home server.
func (h Handle) Resolved() bool {
	return h.BaseInstance != ""
}

// Base returns the server holding the canonical account: the resolved base
// instance if known, otherwise the instance as typed.
func (h Handle) Base() string {
	if h.BaseInstance != "" {
		return h.BaseInstance
	}
	return h.Instance
}

// APIHost returns the host to issue API calls against, preferring the
// resolved API instance, then the base instance, then the typed one.
func (h Handle) APIHost() string {
	if h.APIInstance != "" {
		return h.APIInstance
	}
	return h.Base()
}

// BaseKey returns a cross-server identity key for the handle: the name and
// canonical home server, case-folded. Server-local ids are only unique
// within one server's namespace, so cross-server comparisons must go
// through this key.
func (h Handle) BaseKey() string {
	return strings.ToLower(h.Name) + "@" + strings.ToLower(h.Base())
}

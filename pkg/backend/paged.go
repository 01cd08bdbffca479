package backend

import (
	"context"
	"strings"
)

// FetchPaged drives repeated GET requests against a cursor-paginated
// endpoint, accumulating results until targetCount items were collected.
//
// The next-page pointer is read from the Link response header (the entry
// with rel="next"). The loop stops as soon as one of these triggers:
// the target is reached, no next pointer is present, a page comes back
// strictly shorter than perPage (a cheap end-of-data signal that saves one
// round trip), or a request fails. On failure whatever was accumulated so
// far is returned rather than discarded; the error is only propagated when
// not a single page could be retrieved.
//
// When exactTarget is set, a final page exceeding the remaining quota is
// truncated before appending.
func FetchPaged[T any](ctx context.Context, c *HTTPClient, url string, targetCount, perPage int, exactTarget bool) ([]T, error) {
	var out []T
	remaining := targetCount

	for url != "" && remaining > 0 {
		var page []T
		next, err := c.GetJSONHeader(ctx, url, "Link", &page)
		if err != nil {
			if out == nil {
				return nil, err
			}
			return out, nil
		}

		if exactTarget && len(page) > remaining {
			page = page[:remaining]
		}
		out = append(out, page...)
		remaining -= len(page)

		if len(page) < perPage {
			break
		}
		url = nextPageURL(next)
	}

	if out == nil {
		out = []T{}
	}
	return out, nil
}

// nextPageURL extracts the rel="next" target from a Link header value.
// Link headers look like:
//
//	<https://inst/api/v1/...?max_id=5>; rel="next", <https://...>; rel="prev"
//
// Returns the empty string when no next relation is present.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		urlPart, params, found := strings.Cut(part, ";")
		if !found {
			continue
		}
		if !strings.Contains(params, `rel="next"`) {
			continue
		}
		urlPart = strings.TrimSpace(urlPart)
		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}
	return ""
}

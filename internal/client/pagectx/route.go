package pagectx

import (
	"path"
	"strings"
)

// RouteKind classifies a page path
type RouteKind string

const (
	RouteHome    RouteKind = "home"
	RouteListing RouteKind = "listing"
	RouteContent RouteKind = "content"
	RoutePage    RouteKind = "page"
)

// Route describes the current page
type Route struct {
	Path string    `json:"path"`
	Kind RouteKind `json:"kind"`
	Slug string    `json:"slug,omitempty"`
}

// IsContent reports whether the route renders a single content page
func (r Route) IsContent() bool {
	return r.Kind == RouteContent
}

// NewRoute classifies p. Paths beneath contentPrefix are content pages and
// the prefix itself is the listing.
func NewRoute(p, contentPrefix string) Route {
	p = CleanPath(p)
	if p == "/" {
		return Route{Path: p, Kind: RouteHome}
	}

	prefix := "/" + strings.Trim(contentPrefix, "/")
	if prefix != "/" {
		if p == prefix {
			return Route{Path: p, Kind: RouteListing}
		}
		if slug := strings.TrimPrefix(p, prefix+"/"); slug != p && slug != "" {
			return Route{Path: p, Kind: RouteContent, Slug: slug}
		}
	}
	return Route{Path: p, Kind: RoutePage}
}

// CleanPath normalizes a page path to an absolute path without a trailing slash
func CleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + p)
}

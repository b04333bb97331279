package loader

import (
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/bmatcuk/doublestar/v4"
)

// MatchRoutes reports whether path is allowed by a route allow-list.
//
//	(none)      always visible
//	*           every route
//	/blog/*     anything strictly beneath /blog, not /blog itself
//	/tags/**    other glob patterns
//	/about      exact match
func MatchRoutes(routes []string, p string) bool {
	if len(routes) == 0 {
		return true
	}
	p = pagectx.CleanPath(p)
	for _, pattern := range routes {
		if matchRoute(pattern, p) {
			return true
		}
	}
	return false
}

func matchRoute(pattern, p string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "/*"):
		base := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(p, base) && len(p) > len(base)
	case strings.ContainsAny(pattern, "*?[{"):
		ok, err := doublestar.Match(pattern, p)
		return err == nil && ok
	default:
		return pattern == p || pagectx.CleanPath(pattern) == p
	}
}

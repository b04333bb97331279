package plugin

import "errors"

var (
	// ErrNotFound: id absent from the registry or not installed
	ErrNotFound = errors.New("plugin not found")
	// ErrAlreadyInstalled: install of an id that already has a record
	ErrAlreadyInstalled = errors.New("plugin already installed")
	// ErrUpstreamUnavailable: registry or asset fetch failed
	ErrUpstreamUnavailable = errors.New("plugin registry unavailable")
	// ErrRateLimited: registry throttled the request
	ErrRateLimited = errors.New("plugin registry rate limited")
	// ErrInvalidPath: asset path escapes the registry namespace
	ErrInvalidPath = errors.New("invalid asset path")
	// ErrInvalidConfig: configuration does not satisfy the schema
	ErrInvalidConfig = errors.New("invalid plugin configuration")
	// ErrInvalidPolicy: malformed revalidation policy
	ErrInvalidPolicy = errors.New("invalid revalidation policy")
	// ErrNotTheme: theme operation on a non-theme plugin
	ErrNotTheme = errors.New("plugin is not a theme")
)

// IsUpstream reports whether err is a degraded-upstream condition
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrRateLimited)
}

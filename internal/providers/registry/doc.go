// Package registry is the client for the remote plugin registry.
//
// The registry is read-only from this service's point of view: a top-level
// registry.json enumerating every plugin, plus per-plugin manifest and entry
// files under each plugin's source prefix.
//
// Two caches sit in front of the network. The registry snapshot is refreshed
// on a TTL and served stale when a refresh fails. Individual path reads are
// cached per path for RequestTTL and deduplicated while in flight.
//
// The access token is attached to outbound requests only. It never appears in
// returned errors or logged URLs.
package registry

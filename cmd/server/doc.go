// Package main is the entry point for the blog plugin server.
//
// The server hosts the plugin admin API, the active-plugin feed consumed by
// the client runtime, and the asset proxy the browser loads plugin code from.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags override port, host and seed file
//
// Usage:
//
//	REGISTRY_URL=https://plugins.example.com CONTENT_ROOT=./content ./server -port 8000
//
//	# Install plugins listed in a seed file on first boot
//	./server -seed plugins.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

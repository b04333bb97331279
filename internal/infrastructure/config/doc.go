// Package config provides 12-factor configuration for the blog plugin service.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags in cmd/server can override the listen address.
//
// Sections:
//   - Server: PORT, HOST
//   - Logging: LOG_LEVEL, LOG_DEV
//   - RateLimit: RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - Registry: REGISTRY_URL, REGISTRY_TOKEN, REGISTRY_SNAPSHOT_TTL, REGISTRY_REQUEST_TTL,
//     REGISTRY_TIMEOUT, REGISTRY_RETRIES, REGISTRY_RPS
//   - Content: CONTENT_ROOT, CONTENT_POSTS_DIR
//   - Plugins: PLUGIN_DEFAULT_THEME, PLUGIN_SEED_FILE
//   - Revalidate: SITE_URL, REVALIDATE_WEBHOOK_URL, REVALIDATE_WEBHOOK_SECRET,
//     PREWARM_TIMEOUT, PREWARM_CONCURRENCY, REVALIDATE_LISTING_PATHS, CONTENT_ROUTE_PREFIX
//
// Example:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("registry: %s\n", cfg.Registry.URL)
package config

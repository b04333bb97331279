package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Registry   RegistryConfig
	Content    ContentConfig
	Plugins    PluginsConfig
	Revalidate RevalidateConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// AllowedOrigins feeds both CORS and the websocket origin check
	AllowedOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// RegistryConfig holds remote plugin registry settings.
type RegistryConfig struct {
	URL         string        `envconfig:"REGISTRY_URL"`
	Token       string        `envconfig:"REGISTRY_TOKEN"`
	SnapshotTTL time.Duration `envconfig:"REGISTRY_SNAPSHOT_TTL" default:"5m"`
	RequestTTL  time.Duration `envconfig:"REGISTRY_REQUEST_TTL" default:"5m"`
	Timeout     time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"10s"`
	Retries     int           `envconfig:"REGISTRY_RETRIES" default:"2"`
	// RPS caps outbound registry requests; 0 means unlimited
	RPS float64 `envconfig:"REGISTRY_RPS" default:"0"`
}

// ContentConfig locates the content store.
type ContentConfig struct {
	Root     string `envconfig:"CONTENT_ROOT" default:"./content"`
	PostsDir string `envconfig:"CONTENT_POSTS_DIR" default:"posts"`
}

// PluginsConfig holds installer settings.
type PluginsConfig struct {
	DefaultTheme string `envconfig:"PLUGIN_DEFAULT_THEME" default:"default"`
	SeedFile     string `envconfig:"PLUGIN_SEED_FILE"`
}

// RevalidateConfig holds page-cache revalidation settings.
type RevalidateConfig struct {
	SiteURL            string        `envconfig:"SITE_URL"`
	WebhookURL         string        `envconfig:"REVALIDATE_WEBHOOK_URL"`
	WebhookSecret      string        `envconfig:"REVALIDATE_WEBHOOK_SECRET"`
	PrewarmTimeout     time.Duration `envconfig:"PREWARM_TIMEOUT" default:"15s"`
	PrewarmConcurrency int           `envconfig:"PREWARM_CONCURRENCY" default:"4"`
	ListingPaths       []string      `envconfig:"REVALIDATE_LISTING_PATHS" default:"/,/blog,/tags"`
	ContentPrefix      string        `envconfig:"CONTENT_ROUTE_PREFIX" default:"/blog/"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Registry: RegistryConfig{
			SnapshotTTL: 5 * time.Minute,
			RequestTTL:  5 * time.Minute,
			Timeout:     10 * time.Second,
			Retries:     2,
		},
		Content: ContentConfig{
			Root:     "./content",
			PostsDir: "posts",
		},
		Plugins: PluginsConfig{
			DefaultTheme: "default",
		},
		Revalidate: RevalidateConfig{
			PrewarmTimeout:     15 * time.Second,
			PrewarmConcurrency: 4,
			ListingPaths:       []string{"/", "/blog", "/tags"},
			ContentPrefix:      "/blog/",
		},
	}
}

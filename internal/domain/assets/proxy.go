package assets

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/utils"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// CacheControl is sent with every proxied asset
const CacheControl = "public, max-age=3600"

// Asset is a proxied file ready to be written to the browser
type Asset struct {
	Path         string
	Body         []byte
	ContentType  string
	CacheControl string
	ETag         string
}

// Location maps a registry path onto an installed plugin
type Location struct {
	ID     string
	Source string
	Rel    string
}

// Locator resolves registry paths that belong to installed plugins
type Locator interface {
	Locate(ctx context.Context, path string) (Location, bool)
}

// Proxy serves registry-relative paths to the browser
type Proxy struct {
	cache    *Cache
	upstream Upstream
	locator  Locator
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewProxy creates the asset proxy. A nil locator sends every path upstream.
func NewProxy(cache *Cache, upstream Upstream, locator Locator, logger *zap.Logger, metrics *monitoring.Metrics) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{
		cache:    cache,
		upstream: upstream,
		locator:  locator,
		logger:   logger,
		metrics:  metrics,
	}
}

// ValidatePath rejects paths that could escape the registry namespace
func ValidatePath(p string) error {
	if err := utils.ValidateRelativePath(p); err != nil {
		return fmt.Errorf("%w: %v", plugin.ErrInvalidPath, err)
	}
	return nil
}

// ProxyAsset returns the file at a registry-relative path.
// version only busts downstream HTTP caches and does not affect the lookup.
func (p *Proxy) ProxyAsset(ctx context.Context, assetPath, version string) (*Asset, error) {
	if err := ValidatePath(assetPath); err != nil {
		return nil, err
	}
	assetPath = path.Clean(assetPath)

	var body []byte
	if loc, ok := p.locate(ctx, assetPath); ok {
		body = p.cache.ReadAsset(ctx, loc.ID, loc.Source, loc.Rel)
	} else {
		b, err := p.upstream.Fetch(ctx, assetPath)
		if err != nil {
			p.metrics.RecordAssetRead("miss")
			p.logger.Debug("proxied asset unavailable",
				zap.String("path", assetPath),
				zap.String("version", version),
				zap.Error(err))
		} else {
			p.metrics.RecordAssetRead("upstream")
			body = b
		}
	}

	if body == nil {
		return nil, fmt.Errorf("%w: %s", plugin.ErrNotFound, assetPath)
	}
	if len(body) > utils.MaxAssetSize {
		p.logger.Warn("proxied asset exceeds size limit", zap.String("path", assetPath), zap.Int("bytes", len(body)))
		return nil, fmt.Errorf("%w: %s", plugin.ErrNotFound, assetPath)
	}

	return &Asset{
		Path:         assetPath,
		Body:         body,
		ContentType:  ContentType(assetPath, body),
		CacheControl: CacheControl,
		ETag:         utils.ETag(body),
	}, nil
}

func (p *Proxy) locate(ctx context.Context, assetPath string) (Location, bool) {
	if p.locator == nil {
		return Location{}, false
	}
	return p.locator.Locate(ctx, assetPath)
}

var textTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".map":  "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
	".html": "text/html; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
}

// ContentType infers a media type from the extension, then from the bytes
func ContentType(name string, body []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := textTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return mimetype.Detect(body).String()
}

// IsText reports whether a media type is worth compressing
func IsText(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "application/javascript") ||
		strings.HasPrefix(contentType, "image/svg+xml")
}

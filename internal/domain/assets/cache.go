package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/utils"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Root is the store prefix holding cached plugin assets
const Root = "plugins/assets"

const manifestFile = "manifest.json"

// maxParallelDownloads bounds entry downloads per plugin
const maxParallelDownloads = 4

// Upstream is the slice of the registry client the cache needs
type Upstream interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	FetchManifest(ctx context.Context, source string) (*plugin.Manifest, []byte, error)
}

// Cache mirrors plugin assets into the content store
type Cache struct {
	store    contentstore.Store
	upstream Upstream
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewCache creates an asset cache
func NewCache(store contentstore.Store, upstream Upstream, logger *zap.Logger, metrics *monitoring.Metrics) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:    store,
		upstream: upstream,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dir returns the store directory for a plugin's assets
func Dir(id string) string {
	return path.Join(Root, id)
}

// CacheAssets downloads the manifest and every declared entry file.
// It reports success once the manifest is stored; missing entries only log.
func (c *Cache) CacheAssets(ctx context.Context, id, source string) bool {
	log := c.logger.With(zap.String("plugin_id", id))
	if err := utils.ValidateID(id); err != nil {
		log.Warn("refusing to cache assets for invalid id", zap.Error(err))
		return false
	}

	manifest, raw, err := c.upstream.FetchManifest(ctx, source)
	if err != nil {
		log.Warn("manifest download failed, assets will be fetched live", zap.Error(err))
		return false
	}
	if err := c.store.Write(ctx, path.Join(Dir(id), manifestFile), raw); err != nil {
		log.Warn("manifest write failed", zap.Error(err))
		return false
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)
	for _, entry := range manifest.Formats.Entries() {
		g.Go(func() error {
			if err := c.cacheEntry(gctx, id, source, entry); err != nil {
				log.Warn("asset entry not cached", zap.String("entry", entry), zap.Error(err))
			}
			// Degraded entries never fail the batch
			return nil
		})
	}
	_ = g.Wait()

	return true
}

func (c *Cache) cacheEntry(ctx context.Context, id, source, entry string) error {
	if err := utils.ValidateRelativePath(entry); err != nil {
		return fmt.Errorf("%w: %v", plugin.ErrInvalidPath, err)
	}
	body, err := c.upstream.Fetch(ctx, path.Join(source, entry))
	if err != nil {
		return err
	}
	return c.store.Write(ctx, path.Join(Dir(id), entry), body)
}

// ReadAsset returns a plugin file, store first then live from {source}/{rel}.
// A nil result means the file is unavailable from both.
func (c *Cache) ReadAsset(ctx context.Context, id, source, rel string) []byte {
	if utils.ValidateID(id) != nil || utils.ValidateRelativePath(rel) != nil {
		return nil
	}

	body, err := c.store.Read(ctx, path.Join(Dir(id), rel))
	if err == nil {
		c.metrics.RecordAssetRead("store")
		return body
	}
	if !errors.Is(err, contentstore.ErrNotExist) {
		c.logger.Warn("asset store read failed", zap.String("plugin_id", id), zap.Error(err))
	}

	body, err = c.upstream.Fetch(ctx, path.Join(source, rel))
	if err != nil {
		c.metrics.RecordAssetRead("miss")
		c.logger.Debug("asset unavailable upstream",
			zap.String("plugin_id", id),
			zap.String("path", rel),
			zap.Error(err))
		return nil
	}
	c.metrics.RecordAssetRead("upstream")
	return body
}

// RemoveAssets deletes every cached file for id
func (c *Cache) RemoveAssets(ctx context.Context, id string) {
	if utils.ValidateID(id) != nil {
		return
	}
	files, err := c.store.List(ctx, Dir(id))
	if err != nil {
		c.logger.Warn("listing cached assets failed", zap.String("plugin_id", id), zap.Error(err))
		return
	}
	for _, f := range files {
		if !strings.HasPrefix(f, Dir(id)+"/") {
			continue
		}
		if err := c.store.Delete(ctx, f); err != nil {
			c.logger.Warn("deleting cached asset failed",
				zap.String("plugin_id", id),
				zap.String("path", f),
				zap.Error(err))
		}
	}
}

// Manifest returns the cached manifest for id
func (c *Cache) Manifest(ctx context.Context, id string) (*plugin.Manifest, error) {
	if err := utils.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", plugin.ErrNotFound, err)
	}
	raw, err := c.store.Read(ctx, path.Join(Dir(id), manifestFile))
	if errors.Is(err, contentstore.ErrNotExist) {
		return nil, fmt.Errorf("%w: no cached manifest for %s", plugin.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var m plugin.Manifest
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding cached manifest: %w", err)
	}
	return &m, nil
}

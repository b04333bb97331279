package registry

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// IndexPath is the registry-relative path of the plugin index
const IndexPath = "registry.json"

// Snapshot is an immutable copy of the registry index
type Snapshot struct {
	Plugins   []plugin.RegistryPlugin
	FetchedAt time.Time
}

// Find returns the registry entry for id
func (s *Snapshot) Find(id string) (*plugin.RegistryPlugin, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Plugins {
		if s.Plugins[i].ID == id {
			p := s.Plugins[i]
			return &p, true
		}
	}
	return nil, false
}

type index struct {
	Plugins []plugin.RegistryPlugin `json:"plugins"`
}

// Snapshot returns the registry index, refreshing it when older than the TTL.
// Upstream failures degrade to the last good snapshot, or an empty one.
func (c *Client) Snapshot(ctx context.Context) *Snapshot {
	c.mu.RLock()
	current, at := c.snapshot, c.snapshotAt
	c.mu.RUnlock()
	if current != nil && c.now().Sub(at) < c.cfg.SnapshotTTL {
		return current
	}

	v, err, _ := c.group.Do("snapshot:"+IndexPath, func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		c.logger.Warn("registry snapshot unavailable, serving cached copy",
			zap.Error(err),
			zap.Bool("stale", current != nil))
		if current != nil {
			return current
		}
		return &Snapshot{}
	}
	return v.(*Snapshot)
}

func (c *Client) refresh(ctx context.Context) (*Snapshot, error) {
	body, err := c.get(ctx, IndexPath)
	if err != nil {
		return nil, err
	}

	var idx index
	if err := sonic.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("%w: malformed index: %v", plugin.ErrUpstreamUnavailable, err)
	}

	plugins := idx.Plugins[:0]
	for _, p := range idx.Plugins {
		if p.ID == "" || p.Source == "" {
			c.logger.Debug("skipping registry entry without id or source", zap.String("plugin_id", p.ID))
			continue
		}
		p.Revalidation = p.Revalidation.Normalize()
		plugins = append(plugins, p)
	}

	snap := &Snapshot{Plugins: plugins, FetchedAt: c.now()}
	c.mu.Lock()
	c.snapshot = snap
	c.snapshotAt = snap.FetchedAt
	c.mu.Unlock()
	return snap, nil
}

// ManifestPath returns the manifest location under a plugin source prefix
func ManifestPath(source string) string {
	return path.Join(source, "manifest.json")
}

// FetchManifest downloads and decodes {source}/manifest.json
func (c *Client) FetchManifest(ctx context.Context, source string) (*plugin.Manifest, []byte, error) {
	body, err := c.Fetch(ctx, ManifestPath(source))
	if err != nil {
		return nil, nil, err
	}
	var m plugin.Manifest
	if err := sonic.Unmarshal(body, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed manifest: %v", plugin.ErrUpstreamUnavailable, err)
	}
	m.Revalidation = m.Revalidation.Normalize()
	return &m, body, nil
}

package installer

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/assets"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/schema"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/registry"
	"go.uber.org/zap"
)

// List returns every registry plugin plus installed plugins that have left
// the registry, with installed, enabled and active flags.
func (m *Manager) List(ctx context.Context) ([]plugin.Summary, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, err
	}
	snap := m.registry.Snapshot(ctx)

	summaries := make([]plugin.Summary, 0, len(snap.Plugins)+len(st.Plugins))
	seen := make(map[string]bool, len(snap.Plugins))
	for i := range snap.Plugins {
		rp := &snap.Plugins[i]
		seen[rp.ID] = true
		summaries = append(summaries, summarize(st, rp, st.Plugins[rp.ID]))
	}

	var orphans []string
	for id := range st.Plugins {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		summaries = append(summaries, summarize(st, nil, st.Plugins[id]))
	}
	return summaries, nil
}

func summarize(st *plugin.State, rp *plugin.RegistryPlugin, rec *plugin.Installed) plugin.Summary {
	var s plugin.Summary
	if rp != nil {
		s = plugin.Summary{
			ID:          rp.ID,
			Name:        rp.Name,
			Description: rp.Description,
			Category:    rp.Category,
			Version:     rp.Version,
			InRegistry:  true,
			Formats:     rp.Formats,
			Policy:      rp.Revalidation.Normalize(),
		}
	}
	if rec != nil {
		if rp == nil {
			s.ID = rec.ID
			s.Name = rec.ID
			s.Category = rec.Category
			s.Version = rec.Version
		}
		s.Installed = true
		s.Enabled = rec.Enabled
		s.Active = rec.IsTheme() && rec.Enabled && st.ActiveTheme == rec.ID
		s.Policy = rec.Revalidation
	}
	return s
}

// Detail returns a plugin's schema with its merged configuration
func (m *Manager) Detail(ctx context.Context, id string) (*plugin.Detail, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, err
	}
	snap := m.registry.Snapshot(ctx)
	rp, inRegistry := snap.Find(id)
	rec := st.Plugins[id]
	if !inRegistry && rec == nil {
		return nil, fmt.Errorf("%w: %s", plugin.ErrNotFound, id)
	}

	d := &plugin.Detail{Summary: summarize(st, rp, rec), Overrides: map[string]any{}}
	if rec == nil {
		d.Schema = rp.ConfigSchema
	} else {
		d.Overrides = rec.Config
		d.AssetsCached = rec.AssetsCached
		installedAt := rec.InstalledAt
		d.InstalledAt = &installedAt
		d.Schema, _ = m.schemaFor(ctx, snap, rec)
		if !inRegistry {
			d.Formats, _ = m.formatsFor(ctx, snap, rec)
		}
	}
	d.Config = schema.Resolve(d.Schema, d.Overrides)
	return d, nil
}

// ActivePlugins is the feed consumed by the client runtime loader: every
// enabled plugin that offers a mountable fragment, oldest install first.
func (m *Manager) ActivePlugins(ctx context.Context) ([]plugin.ActivePlugin, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, err
	}
	snap := m.registry.Snapshot(ctx)

	records := enabledRecords(st)
	feed := make([]plugin.ActivePlugin, 0, len(records))
	for _, rec := range records {
		formats, ok := m.formatsFor(ctx, snap, rec)
		if !ok || formats.Fragment == nil || formats.Fragment.Entry == "" {
			continue
		}
		s, _ := m.schemaFor(ctx, snap, rec)

		ap := plugin.ActivePlugin{
			ID:      rec.ID,
			Version: rec.Version,
			Tag:     formats.Fragment.Tag,
			Slots:   formats.Fragment.Slots,
			Routes:  formats.Fragment.Routes,
			Code:    path.Join(rec.Source, formats.Fragment.Entry),
			Config:  schema.Resolve(s, rec.Config),
		}
		if ap.Slots == nil {
			ap.Slots = []string{}
		}
		if formats.Stylesheet != nil && formats.Stylesheet.Entry != "" {
			ap.Stylesheet = path.Join(rec.Source, formats.Stylesheet.Entry)
		}
		feed = append(feed, ap)
	}
	return feed, nil
}

// Feed pairs the active plugins with the active theme
func (m *Manager) Feed(ctx context.Context) (*plugin.Feed, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, err
	}
	plugins, err := m.ActivePlugins(ctx)
	if err != nil {
		return nil, err
	}
	return &plugin.Feed{ActiveTheme: st.ActiveTheme, Plugins: plugins}, nil
}

// InlineStyles renders style variables for every enabled plugin
func (m *Manager) InlineStyles(ctx context.Context) (string, error) {
	st, err := m.State(ctx)
	if err != nil {
		return "", err
	}
	snap := m.registry.Snapshot(ctx)

	var entries []schema.Entry
	for _, rec := range enabledRecords(st) {
		s, ok := m.schemaFor(ctx, snap, rec)
		if !ok {
			continue
		}
		entries = append(entries, schema.Entry{PluginID: rec.ID, Schema: s, Overrides: rec.Config})
	}
	return schema.RenderAll(entries), nil
}

// Locate maps a registry path onto the installed plugin whose source
// prefix contains it. The longest matching prefix wins.
func (m *Manager) Locate(ctx context.Context, p string) (assets.Location, bool) {
	st, err := m.State(ctx)
	if err != nil {
		m.logger.Warn("locating asset failed", zap.Error(err))
		return assets.Location{}, false
	}

	var best assets.Location
	for _, rec := range st.Plugins {
		prefix := strings.TrimSuffix(rec.Source, "/") + "/"
		if rec.Source == "" || !strings.HasPrefix(p, prefix) {
			continue
		}
		if len(rec.Source) > len(best.Source) {
			best = assets.Location{ID: rec.ID, Source: rec.Source, Rel: strings.TrimPrefix(p, prefix)}
		}
	}
	return best, best.ID != ""
}

// schemaFor prefers the live registry entry, then the cached manifest
func (m *Manager) schemaFor(ctx context.Context, snap *registry.Snapshot, rec *plugin.Installed) (plugin.Schema, bool) {
	if rp, ok := snap.Find(rec.ID); ok && len(rp.ConfigSchema) > 0 {
		return rp.ConfigSchema, true
	}
	manifest, err := m.assets.Manifest(ctx, rec.ID)
	if err == nil {
		return manifest.ConfigSchema, true
	}
	if rp, ok := snap.Find(rec.ID); ok {
		return rp.ConfigSchema, true
	}
	return nil, false
}

// formatsFor prefers the live registry entry, then the cached manifest
func (m *Manager) formatsFor(ctx context.Context, snap *registry.Snapshot, rec *plugin.Installed) (plugin.Formats, bool) {
	if rp, ok := snap.Find(rec.ID); ok {
		return rp.Formats, true
	}
	manifest, err := m.assets.Manifest(ctx, rec.ID)
	if err != nil {
		m.logger.Debug("no formats for installed plugin", zap.String("plugin_id", rec.ID), zap.Error(err))
		return plugin.Formats{}, false
	}
	return manifest.Formats, true
}

func enabledRecords(st *plugin.State) []*plugin.Installed {
	var records []*plugin.Installed
	for _, rec := range st.Plugins {
		if rec.Enabled {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].InstalledAt.Equal(records[j].InstalledAt) {
			return records[i].InstalledAt.Before(records[j].InstalledAt)
		}
		return records[i].ID < records[j].ID
	})
	return records
}

func validateConfig(s plugin.Schema, config map[string]any) error {
	return schema.Validate(s, config)
}

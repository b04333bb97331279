package installer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/revalidate"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/registry"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/utils"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// StatePath is where the installed-plugin blob lives in the content store
const StatePath = "plugins/installed.json"

// Registry provides the current registry snapshot
type Registry interface {
	Snapshot(ctx context.Context) *registry.Snapshot
}

// AssetCache mirrors plugin assets
type AssetCache interface {
	CacheAssets(ctx context.Context, id, source string) bool
	RemoveAssets(ctx context.Context, id string)
	Manifest(ctx context.Context, id string) (*plugin.Manifest, error)
}

// Revalidator refreshes the site's page cache
type Revalidator interface {
	Trigger(ctx context.Context, policy plugin.RevalidationPolicy) (revalidate.Decision, error)
}

// Debouncer schedules a single delayed revalidation
type Debouncer interface {
	Schedule(delay time.Duration)
}

// Outcome is the result of a lifecycle operation
type Outcome struct {
	Plugin       *plugin.Installed    `json:"plugin,omitempty"`
	ActiveTheme  string               `json:"activeTheme"`
	Revalidation *revalidate.Decision `json:"revalidation,omitempty"`
}

// Manager runs the installation state machine
type Manager struct {
	store        contentstore.Store
	registry     Registry
	assets       AssetCache
	revalidator  Revalidator
	debouncer    Debouncer
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	defaultTheme string
	now          func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	events  *broker
}

// Config wires a Manager
type Config struct {
	Store        contentstore.Store
	Registry     Registry
	Assets       AssetCache
	Revalidator  Revalidator
	Debouncer    Debouncer
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
	DefaultTheme string
}

// NewManager creates an installer
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = "default"
	}
	return &Manager{
		store:        cfg.Store,
		registry:     cfg.Registry,
		assets:       cfg.Assets,
		revalidator:  cfg.Revalidator,
		debouncer:    cfg.Debouncer,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		defaultTheme: cfg.DefaultTheme,
		now:          time.Now,
		pending:      make(map[string]struct{}),
		events:       newBroker(),
	}
}

// DefaultTheme returns the fallback theme id
func (m *Manager) DefaultTheme() string {
	return m.defaultTheme
}

// Install creates an enabled record for a registry plugin and caches its
// assets. Asset downloads run without holding the state lock.
func (m *Manager) Install(ctx context.Context, id string) (out *Outcome, err error) {
	timer := monitoring.NewTimer(m.metrics, "install")
	defer func() { timer.Stop(err) }()

	if err := utils.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", plugin.ErrNotFound, err)
	}
	rp, ok := m.registry.Snapshot(ctx).Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the registry", plugin.ErrNotFound, id)
	}

	m.mu.Lock()
	st, err := m.load(ctx)
	if err == nil {
		err = m.claim(st, id)
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	defer m.release(id)

	rec := &plugin.Installed{
		ID:           id,
		Enabled:      true,
		InstalledAt:  m.now().UTC(),
		Revalidation: rp.Revalidation.Normalize(),
		Config:       map[string]any{},
		Category:     rp.Category,
		Version:      rp.Version,
		Source:       rp.Source,
	}
	rec.AssetsCached = m.assets.CacheAssets(ctx, id, rp.Source)
	if !rec.AssetsCached {
		m.logger.Warn("installing without cached assets", zap.String("plugin_id", id))
	}

	m.mu.Lock()
	out, err = m.commitInstall(ctx, rec)
	m.mu.Unlock()
	if err != nil {
		if rec.AssetsCached {
			m.assets.RemoveAssets(ctx, id)
		}
		return nil, err
	}

	m.logger.Info("plugin installed",
		zap.String("plugin_id", id),
		zap.String("version", rec.Version),
		zap.Bool("assets_cached", rec.AssetsCached))
	out.Revalidation = m.revalidate(ctx, rec.Revalidation, rec.IsTheme())
	m.events.publish(Event{Type: EventInstalled, PluginID: id, At: m.now(), Revalidation: out.Revalidation})
	return out, nil
}

// commitInstall stores rec; callers hold m.mu
func (m *Manager) commitInstall(ctx context.Context, rec *plugin.Installed) (*Outcome, error) {
	st, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := st.Plugins[rec.ID]; exists {
		return nil, fmt.Errorf("%w: %s", plugin.ErrAlreadyInstalled, rec.ID)
	}
	if rec.IsTheme() {
		for _, other := range st.Themes() {
			other.Enabled = false
		}
		st.ActiveTheme = rec.ID
	}
	st.Plugins[rec.ID] = rec

	if err := m.save(ctx, st); err != nil {
		return nil, err
	}
	return &Outcome{Plugin: rec.Clone(), ActiveTheme: st.ActiveTheme}, nil
}

// claim marks id as being installed or removed; callers hold m.mu
func (m *Manager) claim(st *plugin.State, id string) error {
	if _, exists := st.Plugins[id]; exists {
		return fmt.Errorf("%w: %s", plugin.ErrAlreadyInstalled, id)
	}
	if _, busy := m.pending[id]; busy {
		return fmt.Errorf("%w: %s has an operation in flight", plugin.ErrAlreadyInstalled, id)
	}
	m.pending[id] = struct{}{}
	return nil
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// Uninstall removes the record and then its cached assets. Removing the
// active theme hands activation back to the default theme.
func (m *Manager) Uninstall(ctx context.Context, id string) (out *Outcome, err error) {
	timer := monitoring.NewTimer(m.metrics, "uninstall")
	defer func() { timer.Stop(err) }()

	m.mu.Lock()
	st, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	rec, ok := st.Plugins[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is not installed", plugin.ErrNotFound, id)
	}

	delete(st.Plugins, id)
	wasActive := st.ActiveTheme == id
	if wasActive {
		st.ActiveTheme = m.defaultTheme
		for _, t := range st.Themes() {
			t.Enabled = t.ID == m.defaultTheme
		}
	}

	if err := m.save(ctx, st); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	// a reinstall must not race the asset removal below
	m.pending[id] = struct{}{}
	out = &Outcome{ActiveTheme: st.ActiveTheme}
	m.mu.Unlock()

	m.assets.RemoveAssets(ctx, id)
	m.release(id)

	m.logger.Info("plugin uninstalled", zap.String("plugin_id", id), zap.Bool("was_active_theme", wasActive))
	if rec.Enabled {
		out.Revalidation = m.revalidate(ctx, rec.Revalidation, wasActive)
	}
	m.events.publish(Event{Type: EventUninstalled, PluginID: id, At: m.now(), Revalidation: out.Revalidation})
	return out, nil
}

// SetEnabled toggles a plugin. Enabling a theme activates it; disabling a
// theme directly leaves the state unchanged.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) (out *Outcome, err error) {
	rec, activeTheme, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsTheme() {
		if enabled {
			return m.ActivateTheme(ctx, id)
		}
		m.logger.Debug("ignoring direct disable of a theme", zap.String("plugin_id", id))
		return &Outcome{Plugin: rec, ActiveTheme: activeTheme}, nil
	}

	timer := monitoring.NewTimer(m.metrics, "set_enabled")
	defer func() { timer.Stop(err) }()

	changed := false
	out = &Outcome{}
	err = m.mutate(ctx, id, func(st *plugin.State, rec *plugin.Installed) error {
		changed = rec.Enabled != enabled
		rec.Enabled = enabled
		out.Plugin = rec.Clone()
		out.ActiveTheme = st.ActiveTheme
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return out, nil
	}

	evt := EventDisabled
	if enabled {
		evt = EventEnabled
	}
	out.Revalidation = m.revalidate(ctx, out.Plugin.Revalidation, false)
	m.events.publish(Event{Type: evt, PluginID: id, At: m.now(), Revalidation: out.Revalidation})
	return out, nil
}

// ActivateTheme makes id the only enabled theme. Activation always
// revalidates immediately.
func (m *Manager) ActivateTheme(ctx context.Context, id string) (out *Outcome, err error) {
	timer := monitoring.NewTimer(m.metrics, "activate_theme")
	defer func() { timer.Stop(err) }()

	changed := false
	out = &Outcome{}
	err = m.mutate(ctx, id, func(st *plugin.State, rec *plugin.Installed) error {
		if !rec.IsTheme() {
			return fmt.Errorf("%w: %s", plugin.ErrNotTheme, id)
		}
		if st.ActiveTheme == id && rec.Enabled {
			for _, other := range st.Themes() {
				if other.ID != id && other.Enabled {
					changed = true
				}
			}
		} else {
			changed = true
		}
		for _, t := range st.Themes() {
			t.Enabled = t.ID == id
		}
		st.ActiveTheme = id
		out.Plugin = rec.Clone()
		out.ActiveTheme = id
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info("theme activated", zap.String("plugin_id", id))
	out.Revalidation = m.revalidate(ctx, out.Plugin.Revalidation, true)
	m.events.publish(Event{Type: EventActivated, PluginID: id, At: m.now(), Revalidation: out.Revalidation})
	return out, nil
}

// SetRevalidationPolicy patches a plugin's policy. It never revalidates.
func (m *Manager) SetRevalidationPolicy(ctx context.Context, id string, patch plugin.PolicyPatch) (*plugin.Installed, error) {
	var updated *plugin.Installed
	err := m.mutate(ctx, id, func(_ *plugin.State, rec *plugin.Installed) error {
		policy := patch.Apply(rec.Revalidation)
		if err := policy.Validate(); err != nil {
			return err
		}
		rec.Revalidation = policy.Normalize()
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.events.publish(Event{Type: EventPolicyChanged, PluginID: id, At: m.now()})
	return updated, nil
}

// SetConfig replaces a plugin's overrides after validating them against its
// schema. It never revalidates.
func (m *Manager) SetConfig(ctx context.Context, id string, config map[string]any) (*plugin.Installed, error) {
	rec, _, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s, ok := m.schemaFor(ctx, m.registry.Snapshot(ctx), rec)
	if !ok && len(config) > 0 {
		return nil, fmt.Errorf("%w: schema for %s is unavailable", plugin.ErrUpstreamUnavailable, id)
	}
	if err := validateConfig(s, config); err != nil {
		return nil, err
	}

	var updated *plugin.Installed
	err = m.mutate(ctx, id, func(_ *plugin.State, rec *plugin.Installed) error {
		rec.Config = make(map[string]any, len(config))
		for k, v := range config {
			rec.Config[k] = v
		}
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.events.publish(Event{Type: EventConfigChanged, PluginID: id, At: m.now()})
	return updated, nil
}

// RevalidatePlugin applies id's current policy. Callers use it after a
// configuration or policy change; disabled plugins are skipped.
func (m *Manager) RevalidatePlugin(ctx context.Context, id string) (*revalidate.Decision, error) {
	rec, _, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Enabled {
		return nil, nil
	}
	return m.revalidate(ctx, rec.Revalidation, false), nil
}

// Revalidate forces an immediate revalidation
func (m *Manager) Revalidate(ctx context.Context) *revalidate.Decision {
	d := m.revalidate(ctx, plugin.RevalidationPolicy{Mode: plugin.ModeImmediate}, true)
	m.events.publish(Event{Type: EventRevalidated, At: m.now(), Revalidation: d})
	return d
}

// Get returns a copy of an installed record and the active theme id
func (m *Manager) Get(ctx context.Context, id string) (*plugin.Installed, string, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, "", err
	}
	rec, ok := st.Plugins[id]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s is not installed", plugin.ErrNotFound, id)
	}
	return rec, st.ActiveTheme, nil
}

// State returns a copy of the persisted state
func (m *Manager) State(ctx context.Context) (*plugin.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

var errUnchanged = errors.New("state unchanged")

// mutate loads state, applies fn to the record for id and saves
func (m *Manager) mutate(ctx context.Context, id string, fn func(*plugin.State, *plugin.Installed) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(ctx)
	if err != nil {
		return err
	}
	rec, ok := st.Plugins[id]
	if !ok {
		return fmt.Errorf("%w: %s is not installed", plugin.ErrNotFound, id)
	}
	if err := fn(st, rec); err != nil {
		return err
	}
	return m.save(ctx, st)
}

// load reads the state blob; callers hold m.mu
func (m *Manager) load(ctx context.Context) (*plugin.State, error) {
	raw, err := m.store.Read(ctx, StatePath)
	if errors.Is(err, contentstore.ErrNotExist) {
		return plugin.NewState(m.defaultTheme), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin state: %w", err)
	}

	st := plugin.NewState(m.defaultTheme)
	if err := sonic.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("failed to decode plugin state: %w", err)
	}
	if st.Plugins == nil {
		st.Plugins = make(map[string]*plugin.Installed)
	}
	if st.ActiveTheme == "" {
		st.ActiveTheme = m.defaultTheme
	}
	for id, rec := range st.Plugins {
		if rec == nil {
			delete(st.Plugins, id)
			continue
		}
		rec.ID = id
		if rec.Config == nil {
			rec.Config = map[string]any{}
		}
	}
	return st, nil
}

// save writes the state blob; callers hold m.mu
func (m *Manager) save(ctx context.Context, st *plugin.State) error {
	raw, err := sonic.ConfigStd.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plugin state: %w", err)
	}
	if err := m.store.Write(ctx, StatePath, raw); err != nil {
		return fmt.Errorf("failed to write plugin state: %w", err)
	}
	m.metrics.SetPluginsInstalled(len(st.Plugins))
	return nil
}

// revalidate applies a policy, scheduling debounced follow-ups.
// Failures are logged; state changes are already durable.
func (m *Manager) revalidate(ctx context.Context, policy plugin.RevalidationPolicy, force bool) *revalidate.Decision {
	if m.revalidator == nil {
		return nil
	}
	if force {
		policy = plugin.RevalidationPolicy{Mode: plugin.ModeImmediate}
	}

	d, err := m.revalidator.Trigger(ctx, policy)
	if err != nil {
		m.logger.Warn("revalidation failed", zap.Error(err))
	}
	if d.Mode == plugin.ModeDebounced && m.debouncer != nil {
		m.debouncer.Schedule(d.Delay)
	}
	return &d
}

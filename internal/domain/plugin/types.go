package plugin

import (
	"time"
)

// Category groups registry plugins
type Category string

const (
	CategoryTheme       Category = "theme"
	CategoryWidget      Category = "widget"
	CategoryContent     Category = "content"
	CategoryIntegration Category = "integration"
	CategoryAnalytics   Category = "analytics"
	CategoryUtility     Category = "utility"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryTheme, CategoryWidget, CategoryContent,
		CategoryIntegration, CategoryAnalytics, CategoryUtility:
		return true
	}
	return false
}

// Exclusive reports whether at most one plugin of the category may be enabled.
// Only themes are single-select.
func (c Category) Exclusive() bool {
	return c == CategoryTheme
}

// Format entries declared by a plugin
type (
	// Fragment is a mountable component
	Fragment struct {
		Entry  string   `json:"entry"`
		Tag    string   `json:"tag"`
		Slots  []string `json:"slots,omitempty"`
		Routes []string `json:"routes,omitempty"`
	}

	// Stylesheet is a plugin-wide style sheet
	Stylesheet struct {
		Entry string `json:"entry"`
	}

	// Page is a standalone page contributed by a plugin
	Page struct {
		Entry string `json:"entry"`
		Path  string `json:"path,omitempty"`
	}

	// AdminPage is an admin-facing page
	AdminPage struct {
		Entry string `json:"entry"`
	}
)

// Formats lists the renderable surfaces a plugin offers
type Formats struct {
	Fragment   *Fragment   `json:"fragment,omitempty"`
	Stylesheet *Stylesheet `json:"stylesheet,omitempty"`
	Page       *Page       `json:"page,omitempty"`
	Admin      *AdminPage  `json:"admin,omitempty"`
}

// Entries returns every entry file referenced by the formats, fragment first
func (f Formats) Entries() []string {
	var entries []string
	if f.Fragment != nil && f.Fragment.Entry != "" {
		entries = append(entries, f.Fragment.Entry)
	}
	if f.Stylesheet != nil && f.Stylesheet.Entry != "" {
		entries = append(entries, f.Stylesheet.Entry)
	}
	return entries
}

// RegistryPlugin is an immutable registry entry
type RegistryPlugin struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Category     Category           `json:"category"`
	Version      string             `json:"version"`
	Source       string             `json:"source"`
	Formats      Formats            `json:"formats"`
	ConfigSchema Schema             `json:"configSchema,omitempty"`
	Revalidation RevalidationPolicy `json:"revalidation"`
}

// IsTheme reports whether the plugin belongs to the theme category
func (p *RegistryPlugin) IsTheme() bool {
	return p.Category.Exclusive()
}

// Manifest is the per-plugin document stored at {source}/manifest.json
type Manifest struct {
	ID           string             `json:"id"`
	Version      string             `json:"version"`
	Formats      Formats            `json:"formats"`
	ConfigSchema Schema             `json:"configSchema,omitempty"`
	Revalidation RevalidationPolicy `json:"revalidation"`
}

// Installed is the persisted, mutable record of an installed plugin
type Installed struct {
	ID           string             `json:"id"`
	Enabled      bool               `json:"enabled"`
	InstalledAt  time.Time          `json:"installedAt"`
	AssetsCached bool               `json:"assetsCached"`
	Revalidation RevalidationPolicy `json:"revalidation"`
	Config       map[string]any     `json:"config"`

	// Snapshotted at install time so lifecycle transitions stay offline
	Category Category `json:"category"`
	Version  string   `json:"version"`
	Source   string   `json:"source"`
}

// IsTheme reports whether the record is a theme plugin
func (i *Installed) IsTheme() bool {
	return i.Category.Exclusive()
}

// Clone returns a deep copy of the record
func (i *Installed) Clone() *Installed {
	if i == nil {
		return nil
	}
	c := *i
	c.Config = make(map[string]any, len(i.Config))
	for k, v := range i.Config {
		c.Config[k] = v
	}
	return &c
}

// State is the full persisted blob of installed plugins
type State struct {
	ActiveTheme string                `json:"activeTheme"`
	Plugins     map[string]*Installed `json:"plugins"`
}

// NewState returns an empty state pointing at the default theme
func NewState(defaultTheme string) *State {
	return &State{
		ActiveTheme: defaultTheme,
		Plugins:     make(map[string]*Installed),
	}
}

// Themes returns every installed theme record
func (s *State) Themes() []*Installed {
	var themes []*Installed
	for _, rec := range s.Plugins {
		if rec.IsTheme() {
			themes = append(themes, rec)
		}
	}
	return themes
}

// Summary is a list row for the admin surface
type Summary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    Category           `json:"category"`
	Version     string             `json:"version"`
	Installed   bool               `json:"installed"`
	Enabled     bool               `json:"enabled"`
	Active      bool               `json:"active"`
	InRegistry  bool               `json:"inRegistry"`
	Formats     Formats            `json:"formats"`
	Policy      RevalidationPolicy `json:"revalidation"`
}

// Detail is a single plugin with its schema and merged configuration
type Detail struct {
	Summary
	Schema       Schema         `json:"schema"`
	Config       map[string]any `json:"config"`
	Overrides    map[string]any `json:"overrides"`
	AssetsCached bool           `json:"assetsCached"`
	InstalledAt  *time.Time     `json:"installedAt,omitempty"`
}

// ActivePlugin is the feed entry consumed by the client runtime loader
type ActivePlugin struct {
	ID         string         `json:"id"`
	Version    string         `json:"version"`
	Tag        string         `json:"tag"`
	Slots      []string       `json:"slots"`
	Routes     []string       `json:"routes,omitempty"`
	Code       string         `json:"code"`
	Stylesheet string         `json:"stylesheet,omitempty"`
	Config     map[string]any `json:"config"`
}

// Feed is the active-plugin document served to the client runtime
type Feed struct {
	ActiveTheme string         `json:"activeTheme"`
	Plugins     []ActivePlugin `json:"plugins"`
}

package pagectx

import (
	"sync"
)

// ColorScheme is the page's light or dark mode
type ColorScheme string

const (
	SchemeLight ColorScheme = "light"
	SchemeDark  ColorScheme = "dark"
)

// Platform is the read-only snapshot of the host page
type Platform struct {
	ActiveTheme string      `json:"activeTheme"`
	Route       Route       `json:"route"`
	ColorScheme ColorScheme `json:"colorScheme"`
	Locale      string      `json:"locale"`
}

// Heading is one outline entry of a content page
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
}

// Content is the snapshot of a content page
type Content struct {
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	Words       int       `json:"words"`
	ReadMinutes int       `json:"readMinutes"`
	Outline     []Heading `json:"outline"`
}

func (c *Content) clone() *Content {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	cp.Outline = append([]Heading(nil), c.Outline...)
	return &cp
}

// Context is shared by every mounted plugin on a page
type Context struct {
	mu           sync.RWMutex
	platform     Platform
	content      *Content
	configs      *ConfigService
	bus          *Bus
	capabilities map[string]map[string]any
}

// Writer is the single owner of the route and content snapshot
type Writer struct {
	ctx *Context
}

// NewContext creates a page context. The returned Writer belongs to the loader.
func NewContext(platform Platform, configs *ConfigService, bus *Bus) (*Context, *Writer) {
	if configs == nil {
		configs = NewConfigService(nil)
	}
	if bus == nil {
		bus = NewBus(nil)
	}
	if platform.ColorScheme == "" {
		platform.ColorScheme = SchemeLight
	}
	c := &Context{
		platform:     platform,
		configs:      configs,
		bus:          bus,
		capabilities: make(map[string]map[string]any),
	}
	return c, &Writer{ctx: c}
}

// Platform returns the current platform snapshot
func (c *Context) Platform() Platform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.platform
}

// Route returns the current route
func (c *Context) Route() Route {
	return c.Platform().Route
}

// Content returns the content snapshot; ok is false off content routes
func (c *Context) Content() (*Content, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.content == nil {
		return nil, false
	}
	return c.content.clone(), true
}

// Config returns a copy of a plugin's resolved configuration
func (c *Context) Config(pluginID string) (map[string]any, bool) {
	return c.configs.Get(pluginID)
}

// Configs returns the configuration service
func (c *Context) Configs() *ConfigService {
	return c.configs
}

// Bus returns the event bus
func (c *Context) Bus() *Bus {
	return c.bus
}

// Emit dispatches an event on the bus
func (c *Context) Emit(name string, payload any) int {
	return c.bus.Emit(name, payload)
}

// On subscribes to an event
func (c *Context) On(name string, h Handler) HandlerID {
	return c.bus.On(name, h)
}

// Off removes a subscription
func (c *Context) Off(name string, id HandlerID) bool {
	return c.bus.Off(name, id)
}

// Publish exposes a named capability of a plugin to other plugins
func (c *Context) Publish(pluginID, name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	caps, ok := c.capabilities[pluginID]
	if !ok {
		caps = make(map[string]any)
		c.capabilities[pluginID] = caps
	}
	caps[name] = value
}

// Capability looks up a capability published by a plugin
func (c *Context) Capability(pluginID, name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.capabilities[pluginID][name]
	return v, ok
}

// SetRoute replaces the current route
func (w *Writer) SetRoute(r Route) {
	w.ctx.mu.Lock()
	defer w.ctx.mu.Unlock()
	w.ctx.platform.Route = r
}

// SetContent replaces the content snapshot; nil clears it
func (w *Writer) SetContent(content *Content) {
	w.ctx.mu.Lock()
	defer w.ctx.mu.Unlock()
	w.ctx.content = content.clone()
}

// SetColorScheme switches between light and dark mode
func (w *Writer) SetColorScheme(s ColorScheme) {
	w.ctx.mu.Lock()
	defer w.ctx.mu.Unlock()
	w.ctx.platform.ColorScheme = s
}

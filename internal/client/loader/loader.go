package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/components"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/dom"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/sandbox"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrLoadFailure means a plugin's code could not be fetched or run
	ErrLoadFailure = errors.New("plugin failed to load")
	// ErrMountFailure means a plugin's component could not be rendered
	ErrMountFailure = errors.New("plugin failed to mount")
	// ErrNotInitialized is returned by operations that need Initialize first
	ErrNotInitialized = errors.New("loader is not initialized")
)

// Executor runs plugin code against the page
type Executor interface {
	Execute(ctx context.Context, name, script string) error
}

// ExecutorFactory builds the executor once the page context exists
type ExecutorFactory func(registry *components.Registry, page *pagectx.Context) (Executor, error)

// Options configures a Loader
type Options struct {
	Source        Source
	Document      *dom.Document
	Components    *components.Registry
	NewExecutor   ExecutorFactory
	Frames        Frames
	Platform      pagectx.Platform
	Path          string
	ContentPrefix string
	Logger        *zap.Logger
}

// Report summarizes an Initialize run
type Report struct {
	Loaded  []string
	Mounted map[string]int
	Failed  map[string]error
}

// Loader owns the page's plugin lifecycle and the context writer
type Loader struct {
	source      Source
	doc         *dom.Document
	components  *components.Registry
	newExecutor ExecutorFactory
	frames      Frames
	platform    pagectx.Platform
	path        string
	prefix      string
	logger      *zap.Logger

	page    *pagectx.Context
	writer  *pagectx.Writer
	exec    Executor
	plugins []plugin.ActivePlugin
	mounted []plugin.ActivePlugin
}

// New creates a loader for one page
func New(opts Options) (*Loader, error) {
	if opts.Source == nil || opts.Document == nil {
		return nil, errors.New("loader requires a source and a document")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Components == nil {
		opts.Components = components.NewRegistry()
	}
	if opts.Frames == nil {
		opts.Frames = NewFrameQueue()
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.NewExecutor == nil {
		logger := opts.Logger.Named("sandbox")
		opts.NewExecutor = func(registry *components.Registry, page *pagectx.Context) (Executor, error) {
			return sandbox.New(sandbox.DefaultConfig(), registry, page, logger)
		}
	}

	return &Loader{
		source:      opts.Source,
		doc:         opts.Document,
		components:  opts.Components,
		newExecutor: opts.NewExecutor,
		frames:      opts.Frames,
		platform:    opts.Platform,
		path:        opts.Path,
		prefix:      opts.ContentPrefix,
		logger:      opts.Logger,
	}, nil
}

// Initialize fetches the feed, builds the context, and loads then mounts
// every plugin in feed order. Per-plugin failures land in the report.
func (l *Loader) Initialize(ctx context.Context) (*Report, error) {
	if l.page != nil {
		return nil, errors.New("loader already initialized")
	}

	feed, err := l.source.ActivePlugins(ctx)
	if err != nil {
		return nil, err
	}

	configs := make(map[string]map[string]any, len(feed.Plugins))
	for _, p := range feed.Plugins {
		configs[p.ID] = p.Config
	}

	route := pagectx.NewRoute(l.path, l.prefix)
	platform := l.platform
	platform.ActiveTheme = feed.ActiveTheme
	platform.Route = route
	l.page, l.writer = pagectx.NewContext(platform, pagectx.NewConfigService(configs), pagectx.NewBus(l.logger.Named("bus")))

	exec, err := l.newExecutor(l.components, l.page)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}
	l.exec = exec
	l.plugins = feed.Plugins

	report := &Report{Mounted: make(map[string]int), Failed: make(map[string]error)}
	for _, p := range feed.Plugins {
		if err := l.LoadCode(ctx, p); err != nil {
			l.logger.Warn("plugin load failed", zap.String("plugin_id", p.ID), zap.Error(err))
			report.Failed[p.ID] = err
			continue
		}
		report.Loaded = append(report.Loaded, p.ID)

		n, err := l.Mount(p)
		if err != nil {
			l.logger.Warn("plugin mount failed", zap.String("plugin_id", p.ID), zap.Error(err))
			report.Failed[p.ID] = err
			continue
		}
		report.Mounted[p.ID] = n
	}

	l.logger.Info("plugins initialized",
		zap.Int("active", len(feed.Plugins)),
		zap.Int("loaded", len(report.Loaded)),
		zap.Int("failed", len(report.Failed)))
	l.refresh(route)
	return report, nil
}

// LoadCode runs a plugin's code unless its tag is already registered
func (l *Loader) LoadCode(ctx context.Context, p plugin.ActivePlugin) error {
	if l.components.Has(p.Tag) {
		return nil
	}
	if l.exec == nil {
		return ErrNotInitialized
	}

	code, err := l.source.Code(ctx, p)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadFailure, p.ID, err)
	}
	if err := l.exec.Execute(ctx, p.ID, code); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadFailure, p.ID, err)
	}
	if !l.components.Has(p.Tag) {
		return fmt.Errorf("%w: %s did not define <%s>", ErrLoadFailure, p.ID, p.Tag)
	}
	return nil
}

// Mount inserts one instance into every location of each declared slot
// that does not hold one yet, and returns how many were inserted. Instances
// inserted before a render failure stay mounted and route-gated.
func (l *Loader) Mount(p plugin.ActivePlugin) (inserted int, err error) {
	if l.page == nil {
		return 0, ErrNotInitialized
	}
	render, ok := l.components.Get(p.Tag)
	if !ok {
		return 0, fmt.Errorf("%w: <%s> is not defined", ErrMountFailure, p.Tag)
	}
	cfg, _ := l.page.Config(p.ID)

	defer func() {
		if err == nil || inserted > 0 {
			l.trackMounted(p)
			l.doc.SetVisible(p.ID, l.Visible(p, l.page.Route().Path))
		}
	}()

	for _, slot := range p.Slots {
		for _, loc := range l.doc.Slots(slot) {
			if _, exists := l.doc.Instance(loc, p.ID); exists {
				continue
			}
			inst := &components.Instance{
				ID:       uuid.NewString(),
				PluginID: p.ID,
				Tag:      p.Tag,
				Config:   cfg,
				Context:  l.page,
			}
			body, rerr := render(inst)
			if rerr != nil {
				return inserted, fmt.Errorf("%w: %s: %v", ErrMountFailure, p.ID, rerr)
			}
			if l.doc.Mount(loc, p.ID, p.Tag, inst.ID, body) {
				inserted++
			}
		}
	}
	return inserted, nil
}

// Navigate moves the page to path without re-mounting
func (l *Loader) Navigate(path string) (pagectx.Route, error) {
	if l.page == nil {
		return pagectx.Route{}, ErrNotInitialized
	}
	route := pagectx.NewRoute(path, l.prefix)
	l.writer.SetRoute(route)
	l.refresh(route)
	return route, nil
}

// Visible reports whether p is shown at path
func (l *Loader) Visible(p plugin.ActivePlugin, path string) bool {
	return MatchRoutes(p.Routes, path)
}

// Context returns the page context, nil before Initialize
func (l *Loader) Context() *pagectx.Context {
	return l.page
}

// Mounted lists ids of mounted plugins in mount order
func (l *Loader) Mounted() []string {
	ids := make([]string, len(l.mounted))
	for i, p := range l.mounted {
		ids[i] = p.ID
	}
	return ids
}

func (l *Loader) trackMounted(p plugin.ActivePlugin) {
	for i, m := range l.mounted {
		if m.ID == p.ID {
			l.mounted[i] = p
			return
		}
	}
	l.mounted = append(l.mounted, p)
}

// refresh applies route gating and emits the route's events. content-ready
// waits two frames so the host can finish layout first.
func (l *Loader) refresh(route pagectx.Route) {
	for _, p := range l.mounted {
		l.doc.SetVisible(p.ID, l.Visible(p, route.Path))
	}

	if route.IsContent() {
		l.writer.SetContent(l.doc.Article())
	} else {
		l.writer.SetContent(nil)
	}
	l.page.Emit(pagectx.EventRouteChange, route)

	if !route.IsContent() {
		return
	}
	l.frames.RequestFrame(func() {
		l.frames.RequestFrame(func() {
			if l.page.Route().Path != route.Path {
				return
			}
			content, _ := l.page.Content()
			l.page.Emit(pagectx.EventContentReady, content)
		})
	})
}

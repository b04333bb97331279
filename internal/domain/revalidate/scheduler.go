package revalidate

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/contentstore"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/providers/pagecache"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls which pages are revalidated and how they are warmed
type Config struct {
	SiteURL            string
	ListingPaths       []string
	ContentPrefix      string
	PostsDir           string
	PrewarmTimeout     time.Duration
	PrewarmConcurrency int
}

// Decision describes what a trigger did
type Decision struct {
	Mode  plugin.RevalidationMode `json:"mode"`
	Delay time.Duration           `json:"-"`
	Paths int                     `json:"paths,omitempty"`
}

// MarshalJSON reports the delay in whole seconds
func (d Decision) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(struct {
		Mode         plugin.RevalidationMode `json:"mode"`
		DelaySeconds int                     `json:"delaySeconds,omitempty"`
		Paths        int                     `json:"paths,omitempty"`
	}{d.Mode, int(d.Delay / time.Second), d.Paths})
}

// Scheduler invalidates and pre-warms site pages
type Scheduler struct {
	cache   pagecache.PageCache
	store   contentstore.Store
	http    *resty.Client
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	wg sync.WaitGroup
}

// NewScheduler creates a revalidation scheduler
func NewScheduler(cache pagecache.PageCache, store contentstore.Store, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Scheduler {
	if cfg.PrewarmTimeout <= 0 {
		cfg.PrewarmTimeout = 15 * time.Second
	}
	if cfg.PrewarmConcurrency <= 0 {
		cfg.PrewarmConcurrency = 4
	}
	if cfg.ContentPrefix == "" {
		cfg.ContentPrefix = "/blog/"
	}
	if cfg.PostsDir == "" {
		cfg.PostsDir = "posts"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cache: cache,
		store: store,
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.SiteURL, "/")).
			SetHeader("User-Agent", "blog-prewarm/1.0"),
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Trigger applies a plugin's revalidation policy. Debounced policies only
// report their delay; scheduling the follow-up is the caller's job.
func (s *Scheduler) Trigger(ctx context.Context, policy plugin.RevalidationPolicy) (Decision, error) {
	policy = policy.Normalize()
	s.metrics.RecordRevalidation(string(policy.Mode))

	if policy.Mode == plugin.ModeDebounced {
		return Decision{Mode: plugin.ModeDebounced, Delay: policy.Delay()}, nil
	}

	n, err := s.revalidate(ctx)
	return Decision{Mode: plugin.ModeImmediate, Paths: n}, err
}

// RevalidateNow invalidates every page and starts a background pre-warm
func (s *Scheduler) RevalidateNow(ctx context.Context) error {
	_, err := s.revalidate(ctx)
	return err
}

func (s *Scheduler) revalidate(ctx context.Context) (int, error) {
	paths, err := s.Paths(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Invalidate(ctx, paths); err != nil {
		return 0, fmt.Errorf("invalidating %d paths: %w", len(paths), err)
	}
	s.logger.Info("pages revalidated", zap.Int("paths", len(paths)))

	if s.cfg.SiteURL != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.prewarm(paths)
		}()
	}
	return len(paths), nil
}

// Paths lists the shell and listing pages followed by every content page
func (s *Scheduler) Paths(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	add("/")
	for _, p := range s.cfg.ListingPaths {
		if p != "" {
			add(p)
		}
	}

	slugs, err := s.contentSlugs(ctx)
	if err != nil {
		return nil, err
	}
	for _, slug := range slugs {
		add(s.cfg.ContentPrefix + slug)
	}
	return paths, nil
}

func (s *Scheduler) contentSlugs(ctx context.Context) ([]string, error) {
	files, err := s.store.List(ctx, s.cfg.PostsDir)
	if err != nil {
		return nil, fmt.Errorf("listing content pages: %w", err)
	}

	prefix := strings.TrimSuffix(s.cfg.PostsDir, "/") + "/"
	var slugs []string
	for _, f := range files {
		ext := path.Ext(f)
		if ext != ".md" && ext != ".mdx" {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(strings.TrimPrefix(f, prefix), ext))
	}
	sort.Strings(slugs)
	return slugs, nil
}

// prewarm requests each page once so the next visitor hits a warm cache
func (s *Scheduler) prewarm(paths []string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PrewarmTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(s.cfg.PrewarmConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			resp, err := s.http.R().SetContext(ctx).Get(p)
			switch {
			case err != nil:
				s.metrics.RecordPrewarm("error")
				s.logger.Debug("pre-warm failed", zap.String("path", p), zap.Error(err))
			case resp.StatusCode() >= http.StatusBadRequest:
				s.metrics.RecordPrewarm("error")
				s.logger.Debug("pre-warm failed", zap.String("path", p), zap.Int("status", resp.StatusCode()))
			default:
				s.metrics.RecordPrewarm("ok")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Wait blocks until background pre-warms finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

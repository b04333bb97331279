package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/monitoring"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config configures the registry client
type Config struct {
	BaseURL     string
	Token       string
	SnapshotTTL time.Duration
	RequestTTL  time.Duration
	Timeout     time.Duration
	Retries     int
	RPS         float64
}

// Client fetches registry documents with caching, rate limiting and a circuit breaker
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics
	cfg     Config
	now     func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	snapshot   *Snapshot
	snapshotAt time.Time
	paths      map[string]cachedPath
}

type cachedPath struct {
	body    []byte
	expires time.Time
}

// New creates a registry client
func New(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 5 * time.Minute
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Retries live in the transport; throttling answers are surfaced, not retried
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "blog-plugin-runtime/1.0")
	restyClient.SetTransport(&retryablehttp.RoundTripper{Client: retryClient})
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	c := &Client{
		resty:   restyClient,
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		paths:   make(map[string]cachedPath),
	}
	c.breaker = resilience.New("registry", resilience.Settings{
		MaxProbes: 1,
		Window:    time.Minute,
		Cooldown:  30 * time.Second,
		ShouldTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// The registry answered; only unreachable or failing upstreams count
		IsFailure: func(err error) bool {
			return !errors.Is(err, plugin.ErrNotFound) && !errors.Is(err, plugin.ErrRateLimited)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("registry circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Configured reports whether a registry URL is set
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// BreakerState exposes the upstream circuit state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Fetch reads a registry-relative path through the request cache
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	if body, ok := c.cached(path); ok {
		c.metrics.RecordUpstream("cache_hit")
		return body, nil
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		if body, ok := c.cached(path); ok {
			return body, nil
		}
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.paths[path] = cachedPath{body: body, expires: c.now().Add(c.cfg.RequestTTL)}
		c.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// escapePath encodes each segment so the upstream sees literal names
func escapePath(p string) string {
	segs := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segs, "/")
}

func (c *Client) cached(path string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.paths[path]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.body, true
}

// get performs one guarded request. Errors never carry the upstream URL.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: no registry configured", plugin.ErrUpstreamUnavailable)
	}

	body, err := resilience.Call(c.breaker, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", plugin.ErrRateLimited, err)
		}

		resp, err := c.resty.R().SetContext(ctx).Get(escapePath(path))
		if err != nil {
			return nil, fmt.Errorf("%w: request failed", plugin.ErrUpstreamUnavailable)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", plugin.ErrNotFound, path)
		case code == http.StatusTooManyRequests:
			return nil, plugin.ErrRateLimited
		case code >= http.StatusBadRequest:
			return nil, fmt.Errorf("%w: status %d", plugin.ErrUpstreamUnavailable, code)
		}
		return resp.Body(), nil
	})

	switch {
	case err == nil:
		c.metrics.RecordUpstream("ok")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		c.metrics.RecordUpstream("circuit_open")
		err = fmt.Errorf("%w: %v", plugin.ErrUpstreamUnavailable, err)
	case errors.Is(err, plugin.ErrNotFound):
		c.metrics.RecordUpstream("not_found")
	case errors.Is(err, plugin.ErrRateLimited):
		c.metrics.RecordUpstream("rate_limited")
	default:
		c.metrics.RecordUpstream("error")
	}
	return body, err
}

package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// Feed and asset endpoints served by the plugin service
const (
	FeedPath  = "/api/plugins/active"
	AssetPath = "/api/plugins/asset"
)

// Source supplies the active-plugin feed and plugin code
type Source interface {
	ActivePlugins(ctx context.Context) (*plugin.Feed, error)
	Code(ctx context.Context, p plugin.ActivePlugin) (string, error)
}

// HTTPSource reads from the plugin service over HTTP
type HTTPSource struct {
	client *resty.Client
}

// NewHTTPSource creates a source for the service at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "blog-plugin-runtime/1.0").
		SetJSONUnmarshaler(sonic.Unmarshal)
	return &HTTPSource{client: client}
}

// ActivePlugins fetches the feed once
func (s *HTTPSource) ActivePlugins(ctx context.Context) (*plugin.Feed, error) {
	var feed plugin.Feed
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&feed).
		Get(FeedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active plugins: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("active plugins returned status %d", resp.StatusCode())
	}
	return &feed, nil
}

// Code fetches a plugin's fragment script through the asset proxy. The
// version is appended to bust caches after an update.
func (s *HTTPSource) Code(ctx context.Context, p plugin.ActivePlugin) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("path", p.Code).
		SetQueryParam("v", p.Version).
		Get(AssetPath)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", p.Code, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching %s returned status %d", p.Code, resp.StatusCode())
	}
	return resp.String(), nil
}

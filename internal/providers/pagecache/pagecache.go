// Package pagecache invalidates the host site's rendered page cache.
package pagecache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SecretHeader carries the shared webhook secret
const SecretHeader = "X-Revalidate-Secret"

// PageCache drops cached renderings of site paths
type PageCache interface {
	Invalidate(ctx context.Context, paths []string) error
}

// Webhook calls the host's revalidation endpoint
type Webhook struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

type invalidateRequest struct {
	Paths []string `json:"paths"`
}

// NewWebhook creates a webhook page cache
func NewWebhook(url, secret string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1).
		SetHeader("Content-Type", "application/json")
	if secret != "" {
		client.SetHeader(SecretHeader, secret)
	}
	return &Webhook{client: client, url: url, logger: logger}
}

// Invalidate posts the path list to the webhook
func (w *Webhook) Invalidate(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(invalidateRequest{Paths: paths}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("revalidation webhook failed: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("revalidation webhook returned status %d", resp.StatusCode())
	}
	w.logger.Debug("page cache invalidated", zap.Int("paths", len(paths)))
	return nil
}

// Noop stands in when no webhook is configured
type Noop struct {
	Logger *zap.Logger
}

// Invalidate only logs
func (n Noop) Invalidate(_ context.Context, paths []string) error {
	if n.Logger != nil {
		n.Logger.Debug("no page cache configured, skipping invalidation", zap.Strings("paths", paths))
	}
	return nil
}

// New returns a Webhook when url is set, otherwise Noop
func New(url, secret string, timeout time.Duration, logger *zap.Logger) PageCache {
	if url == "" {
		return Noop{Logger: logger}
	}
	return NewWebhook(url, secret, timeout, logger)
}
